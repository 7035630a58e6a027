// Package fixture loads sound libraries from YAML files.
//
// A fixture lists sounds and collections; collections place sounds by name:
//
//	sounds:
//	  - name: Bass One
//	    category: Bass
//	    tags: [dark, mono]
//	collections:
//	  - name: Live
//	    slots:
//	      - {slot: 0, sound: Bass One}
//
// Files are decoded strictly (unknown keys are errors), checked against an
// embedded CUE schema, and then checked for cross references: sound names are
// unique, collections reference known sounds, and no slot is claimed twice.
package fixture
