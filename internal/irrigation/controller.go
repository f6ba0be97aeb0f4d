package irrigation

import (
	"fmt"
	"math"
	"time"

	"cloudseed-monitor/internal/modbus"
)

// ControllerStatus is a snapshot of the irrigation controller.
type ControllerStatus struct {
	Timestamp time.Time `json:"timestamp"`

	DeviceName  string `json:"device_name"`
	State       uint16 `json:"state"`
	StateString string `json:"state_string"`
	ActiveDay   string `json:"active_day"`
	FaultCode   uint16 `json:"fault_code"`

	AppliedTodayMM float64 `json:"applied_today_mm"`
	AppliedTotalMM float64 `json:"applied_total_mm"`
	SoilMoisture   float64 `json:"soil_moisture_pct"`
	ValveTemp      float64 `json:"valve_temperature_c"`

	IsOnline bool `json:"is_online"`
}

// Schedule is the plan as stored on the controller.
type Schedule struct {
	Irrigation [7]float64 `json:"irrigation_mm"`
	RainDay    int        `json:"rain_day"`
	RainfallMM float64    `json:"rainfall_mm"`
}

type Controller struct {
	client *modbus.Client
}

func NewController(client *modbus.Client) *Controller {
	return &Controller{client: client}
}

// Connect opens the Modbus connection if it is not already open.
func (c *Controller) Connect() error {
	return c.client.Connect()
}

func (c *Controller) Close() error {
	return c.client.Close()
}

// Reconnect drops and reopens the Modbus connection.
func (c *Controller) Reconnect() error {
	return c.client.Reconnect()
}

func (c *Controller) Address() string {
	return c.client.Address()
}

// Apply stages the plan in the schedule registers and commits it.
func (c *Controller) Apply(plan *Plan) error {
	regs := make([]uint16, 0, 9)
	for _, mm := range plan.Irrigation {
		regs = append(regs, toRegister(mm, scheduleScale))
	}

	rainDay := uint16(rainDayNone)
	if plan.HasRainDay() {
		rainDay = uint16(plan.RainDay)
	}
	regs = append(regs, rainDay, toRegister(plan.RainfallMM, rainfallScale))

	if err := c.client.WriteRegisters(RegScheduleMonday, regs); err != nil {
		return fmt.Errorf("failed to write schedule: %w", err)
	}
	if err := c.client.WriteRegister(RegCommit, commitApply); err != nil {
		return fmt.Errorf("failed to commit schedule: %w", err)
	}
	return nil
}

// Schedule reads back the staged schedule.
func (c *Controller) Schedule() (*Schedule, error) {
	regs, err := c.client.ReadHoldingRegisters(RegScheduleMonday, 9)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	s := &Schedule{RainDay: NoRainDay}
	for i := range s.Irrigation {
		s.Irrigation[i] = float64(regs[i]) / scheduleScale
	}
	if regs[7] != rainDayNone {
		s.RainDay = int(regs[7])
	}
	s.RainfallMM = float64(regs[8]) / rainfallScale
	return s, nil
}

func (c *Controller) Status() (*ControllerStatus, error) {
	status := &ControllerStatus{
		Timestamp: time.Now(),
		IsOnline:  true,
	}

	name, err := c.client.ReadString(RegDeviceName, deviceNameLength)
	if err != nil {
		status.IsOnline = false
		return status, fmt.Errorf("failed to read device name: %w", err)
	}
	status.DeviceName = name

	state, err := c.client.ReadUint16(RegState)
	if err != nil {
		return status, fmt.Errorf("failed to read state: %w", err)
	}
	status.State = state
	status.StateString = StateString(state)

	day, err := c.client.ReadUint16(RegActiveDay)
	if err != nil {
		return status, fmt.Errorf("failed to read active day: %w", err)
	}
	if int(day) < len(Weekdays) {
		status.ActiveDay = Weekdays[day].String()
	}

	today, err := c.client.ReadUint16(RegAppliedToday)
	if err != nil {
		return status, fmt.Errorf("failed to read applied water: %w", err)
	}
	status.AppliedTodayMM = float64(today) / scheduleScale

	total, err := c.client.ReadUint32(RegAppliedTotal)
	if err != nil {
		return status, fmt.Errorf("failed to read total applied water: %w", err)
	}
	status.AppliedTotalMM = float64(total) / scheduleScale

	moisture, err := c.client.ReadUint16(RegSoilMoisture)
	if err != nil {
		return status, fmt.Errorf("failed to read soil moisture: %w", err)
	}
	status.SoilMoisture = float64(moisture) * 0.1

	fault, err := c.client.ReadUint16(RegFaultCode)
	if err != nil {
		return status, fmt.Errorf("failed to read fault code: %w", err)
	}
	status.FaultCode = fault

	temp, err := c.client.ReadInt16(RegValveTemp)
	if err != nil {
		return status, fmt.Errorf("failed to read valve temperature: %w", err)
	}
	status.ValveTemp = float64(temp) * 0.1

	return status, nil
}

// toRegister scales mm into a register value, saturating below the rain-day
// sentinel.
func toRegister(mm float64, scale float64) uint16 {
	v := math.Round(mm * scale)
	switch {
	case v <= 0:
		return 0
	case v >= rainDayNone:
		return rainDayNone - 1
	default:
		return uint16(v)
	}
}
