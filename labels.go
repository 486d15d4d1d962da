package modbus

import "strconv"

// RegisterLabels maps holding register addresses to display names.
type RegisterLabels map[int]string

// DefaultLabels returns the register map of the AC unit adapter the simulator stands in for.
func DefaultLabels() RegisterLabels {
	return RegisterLabels{
		0:  "AC Unit (On/Off)",
		1:  "AC Mode (Auto/Heat/Cool...)",
		2:  "Fan Speed",
		3:  "Vane Position",
		4:  "Temp Setpoint",
		5:  "Temp Reference",
		6:  "Window Contact",
		7:  "Adapter Enable",
		8:  "Remote Control",
		9:  "Operation Time",
		10: "Alarm Status",
		11: "Error Code",
		12: "Ambient Temp",
		13: "Real Setpoint",
		14: "Max Setpoint",
		15: "Min Setpoint",
		22: "Ambient Temp (Duplicate/Alt)",
		31: "Status Feedback",
		34: "Vane Pulse",
		66: "Return Path Temp",
		98: "Gateway/Slave Info",
	}
}

// Label returns the name of address, or "Register {address}" when it has none.
func (l RegisterLabels) Label(address int) string {
	if name, ok := l[address]; ok && name != "" {
		return name
	}
	return "Register " + strconv.Itoa(address)
}
