package irrigation

// Irrigation controller register map.

const (
	// Schedule (Holding Registers, read/write)
	RegScheduleMonday = 100 // 100-106, U16 per day Monday..Sunday, 0.1mm
	RegRainDay        = 107 // U16, 0=Monday..6=Sunday, 0xFFFF=none
	RegRainfall       = 108 // U16, 0.01mm
	RegCommit         = 109 // U16, write 1 to apply the staged schedule

	// Status (Input Registers)
	RegState         = 0  // U16
	RegActiveDay     = 1  // U16, 0=Monday..6=Sunday
	RegAppliedToday  = 2  // U16, 0.1mm
	RegAppliedTotal  = 3  // 3-4, U32, 0.1mm
	RegSoilMoisture  = 5  // U16, 0.1%
	RegFaultCode     = 6  // U16
	RegValveTemp     = 7  // S16, 0.1°C
	RegDeviceName    = 10 // 10-17, String (8 registers)
	deviceNameLength = 8
)

const (
	scheduleScale = 10  // registers per mm
	rainfallScale = 100 // registers per mm

	rainDayNone = 0xFFFF
	commitApply = 1
)

// Controller states
const (
	StateIdle       = 0
	StateIrrigating = 1
	StateRainHold   = 2
	StateFault      = 3
)

func StateString(state uint16) string {
	switch state {
	case StateIdle:
		return "Idle"
	case StateIrrigating:
		return "Irrigating"
	case StateRainHold:
		return "Rain hold"
	case StateFault:
		return "Fault"
	default:
		return "Unknown"
	}
}
