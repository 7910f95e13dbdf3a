package rvolution

import "fmt"

// Logical command names shared by both families. Order is significant: it
// is the order commands are exported to the remote's UI.
var commonCommands = []string{
	// Power
	"Power Toggle",
	"Power On",
	"Power Off",

	// Playback
	"Play/Pause",
	"Stop",
	"Next",
	"Previous",
	"Fast Forward",
	"Fast Reverse",
	"10 sec forward",
	"10 sec rewind",
	"60 sec forward",
	"60 sec rewind",
	"Repeat",

	// Volume
	"Volume Up",
	"Volume Down",
	"Mute",

	// Navigation
	"Cursor Up",
	"Cursor Down",
	"Cursor Left",
	"Cursor Right",
	"Cursor Enter",
	"Home",
	"Menu",
	"Return",
	"Info",

	// Digits
	"Digit 0",
	"Digit 1",
	"Digit 2",
	"Digit 3",
	"Digit 4",
	"Digit 5",
	"Digit 6",
	"Digit 7",
	"Digit 8",
	"Digit 9",

	// Color functions
	"Function Red",
	"Function Green",
	"Function Yellow",
	"Function Blue",

	// Misc
	"Audio",
	"Subtitle",
	"Zoom",
	"Delete",
	"Explorer",
	"Page Up",
	"Page Down",
}

// Player-only commands: the R_video app shortcut and the XMOS audio output
// toggle exist only on R_volution Player hardware.
var playerExtraCommands = []string{
	"R_video",
	"HDMI/XMOS Audio Toggle",
}

// IR codes for Amlogic-based devices (PlayerOne 8K, Pro 8K, Mini).
var amlogicCodes = map[string]IRCode{
	"Power Toggle":   "B24D4040",
	"Power On":       "4CB34040",
	"Power Off":      "4AB54040",
	"Play/Pause":     "AC534040",
	"Stop":           "BD424040",
	"Next":           "E11E4040",
	"Previous":       "E01F4040",
	"Fast Forward":   "E41BBF00",
	"Fast Reverse":   "E31CBF00",
	"10 sec forward": "BF404040",
	"10 sec rewind":  "DF204040",
	"60 sec forward": "EE114040",
	"60 sec rewind":  "EF104040",
	"Repeat":         "B9464040",
	"Volume Up":      "E7184040",
	"Volume Down":    "E8174040",
	"Mute":           "BC434040",
	"Cursor Up":      "F40B4040",
	"Cursor Down":    "F10E4040",
	"Cursor Left":    "EF104040",
	"Cursor Right":   "EE114040",
	"Cursor Enter":   "F20D4040",
	"Home":           "E51A4040",
	"Menu":           "BA454040",
	"Return":         "BD424040",
	"Info":           "BB444040",
	"Digit 0":        "FF004040",
	"Digit 1":        "FE014040",
	"Digit 2":        "FD024040",
	"Digit 3":        "FC034040",
	"Digit 4":        "FB044040",
	"Digit 5":        "FA054040",
	"Digit 6":        "F9064040",
	"Digit 7":        "F8074040",
	"Digit 8":        "F7084040",
	"Digit 9":        "F6094040",
	"Function Red":   "A68E4040",
	"Function Green": "F50A4040",
	"Function Yellow": "BE414040",
	"Function Blue":  "AB544040",
	"Audio":          "E6194040",
	"Subtitle":       "E41B4040",
	"Zoom":           "E21D4040",
	"Delete":         "F30C4040",
	"Explorer":       "EA164040",
	"Page Up":        "BF404040",
	"Page Down":      "DB204040",
}

// IR codes for R_volution Player devices. Superset of the Amlogic command
// set: same logical names plus the two Player-only extras.
var playerCodes = map[string]IRCode{
	"Power Toggle":   "EC4D4040",
	"Power On":       "ECB34040",
	"Power Off":      "ECB54040",
	"Play/Pause":     "EC534040",
	"Stop":           "EC424040",
	"Next":           "EC1E4040",
	"Previous":       "EC1F4040",
	"Fast Forward":   "E41BBF00",
	"Fast Reverse":   "E31CBF00",
	"10 sec forward": "EC404040",
	"10 sec rewind":  "EC204040",
	"60 sec forward": "EC114040",
	"60 sec rewind":  "EC104040",
	"Repeat":         "EC464040",
	"Volume Up":      "EC184040",
	"Volume Down":    "EC174040",
	"Mute":           "EC434040",
	"Cursor Up":      "EC0B4040",
	"Cursor Down":    "EC0E4040",
	"Cursor Left":    "EC104040",
	"Cursor Right":   "EC114040",
	"Cursor Enter":   "EC0D4040",
	"Home":           "EC1A4040",
	"Menu":           "EC454040",
	"Return":         "EC424040",
	"Info":           "EC444040",
	"Digit 0":        "EC004040",
	"Digit 1":        "EC014040",
	"Digit 2":        "EC024040",
	"Digit 3":        "EC034040",
	"Digit 4":        "EC044040",
	"Digit 5":        "EC054040",
	"Digit 6":        "EC064040",
	"Digit 7":        "EC074040",
	"Digit 8":        "EC084040",
	"Digit 9":        "EC094040",
	"Function Red":   "EC574040",
	"Function Green": "EC0A4040",
	"Function Yellow": "EC414040",
	"Function Blue":  "EC544040",
	"Audio":          "EC194040",
	"Subtitle":       "EC1B4040",
	"Zoom":           "EC1D4040",
	"Delete":         "EC0C4040",
	"Explorer":       "EC164040",
	"Page Up":        "EC404040",
	"Page Down":      "EC204040",

	"R_video":                "EC134040",
	"HDMI/XMOS Audio Toggle": "BA45BF00",
}

// Resolve maps a logical command name to the IR code for the given family.
func Resolve(family Family, name string) (IRCode, error) {
	codes, err := catalog(family)
	if err != nil {
		return "", err
	}
	code, ok := codes[name]
	if !ok {
		return "", fmt.Errorf("%w: %q for family %s", ErrUnknownCommand, name, family)
	}
	return code, nil
}

// Commands returns the ordered logical command names for a family. The UI
// layer filters buttons by this list rather than probing Resolve failures.
func Commands(family Family) []string {
	out := make([]string, 0, len(commonCommands)+len(playerExtraCommands))
	out = append(out, commonCommands...)
	if family == FamilyPlayer {
		out = append(out, playerExtraCommands...)
	}
	return out
}

// Supports reports whether the family's catalog contains the logical name.
func Supports(family Family, name string) bool {
	codes, err := catalog(family)
	if err != nil {
		return false
	}
	_, ok := codes[name]
	return ok
}

func catalog(family Family) (map[string]IRCode, error) {
	switch family {
	case FamilyAmlogic:
		return amlogicCodes, nil
	case FamilyPlayer:
		return playerCodes, nil
	default:
		return nil, fmt.Errorf("unsupported device family: %q", family)
	}
}
