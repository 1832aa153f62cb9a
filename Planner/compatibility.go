package Planner

import "fmt"

// Compatible reports whether v can serve s. The first failing rule wins.
func Compatible(v Vehicle, s Site) (bool, string) {
	switch {
	case v.LowClearance && s.HighDock:
		return false, fmt.Sprintf("%s is too LOW for %s.", v.Name, s.Name)
	case v.Oversized && s.NarrowGate:
		return false, fmt.Sprintf("%s is too BIG for %s.", v.Name, s.Name)
	case v.Tall && s.LowWires:
		return false, fmt.Sprintf("%s is too TALL for %s.", v.Name, s.Name)
	}
	return true, "OK"
}
