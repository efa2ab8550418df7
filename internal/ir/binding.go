package ir

import "fmt"

// ElectricalBusBinding associates an electrical bus with the host's bus
// connection index.
type ElectricalBusBinding struct {
	Name      string `json:"name" yaml:"name"`
	HostIndex int    `json:"host_index" yaml:"host_index"`
}

// PoweredVariable is the aspect variable the model writes to report whether
// the bus is powered.
func (b ElectricalBusBinding) PoweredVariable() Variable {
	return Aspect(fmt.Sprintf("ELEC_%s_BUS_IS_POWERED", normalize(b.Name)))
}

// HostVariable is the host cell receiving the bus powered state.
func (b ElectricalBusBinding) HostVariable() Variable {
	return Aircraft("BUS CONNECTION ON", "Bool", b.HostIndex)
}

// AuxiliaryPowerUnitBinding links the APU availability variable to the host
// fuel valve that feeds the APU.
type AuxiliaryPowerUnitBinding struct {
	IsAvailableVariable string `json:"is_available_variable" yaml:"is_available_variable"`
	FuelValveNumber     int    `json:"fuel_valve_number" yaml:"fuel_valve_number"`
}

// AvailableVariable is the aspect variable carrying APU availability.
func (b AuxiliaryPowerUnitBinding) AvailableVariable() Variable {
	return Aspect(b.IsAvailableVariable)
}

// HostVariable is the host fuel valve opened while the APU is available.
func (b AuxiliaryPowerUnitBinding) HostVariable() Variable {
	return Aircraft("FUELSYSTEM VALVE OPEN", "Bool", b.FuelValveNumber)
}

// ProvidedVariable is a host variable the model is allowed to read, with the
// value it holds before the first host read.
type ProvidedVariable struct {
	Variable Variable `json:"variable" yaml:"variable"`
	Initial  float64  `json:"initial,omitempty" yaml:"initial,omitempty"`
}

func (p ProvidedVariable) canonical() map[string]any {
	return map[string]any{
		"variable": p.Variable.canonical(),
		"initial":  p.Initial,
	}
}

// Wiring is the electrical and APU wiring table of one build.
type Wiring struct {
	Buses []ElectricalBusBinding
	APU   *AuxiliaryPowerUnitBinding
}

func (w Wiring) canonical() map[string]any {
	buses := make([]any, len(w.Buses))
	for i, b := range w.Buses {
		buses[i] = map[string]any{"name": b.Name, "host_index": b.HostIndex}
	}
	obj := map[string]any{"buses": buses}
	if w.APU != nil {
		obj["apu"] = map[string]any{
			"is_available_variable": w.APU.IsAvailableVariable,
			"fuel_valve_number":     w.APU.FuelValveNumber,
		}
	}
	return obj
}
