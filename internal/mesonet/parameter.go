package mesonet

// Parameter is one of the measured quantities tracked per station.
type Parameter int

const (
	TAIR Parameter = iota // air temperature at 1.5m
	TA9M                  // air temperature at 9m
	SRAD                  // solar radiation
)

// StationColumn is the header token of the station identifier column.
const StationColumn = "STID"

// Parameters lists every tracked parameter in report order.
var Parameters = []Parameter{TAIR, TA9M, SRAD}

type parameterInfo struct {
	token string
	label string
	unit  string
}

var parameterInfos = [...]parameterInfo{
	TAIR: {token: "TAIR", label: "Air Temperature[1.5m]", unit: "C"},
	TA9M: {token: "TA9M", label: "Air Temperature[9.0m]", unit: "C"},
	SRAD: {token: "SRAD", label: "Solar Radiation[1.5m]", unit: "W/m^2"},
}

var parametersByToken = func() map[string]Parameter {
	m := make(map[string]Parameter, len(parameterInfos))
	for i, info := range parameterInfos {
		m[info.token] = Parameter(i)
	}
	return m
}()

// ParseParameter maps a header token such as "TAIR" to its Parameter.
func ParseParameter(token string) (Parameter, bool) {
	p, ok := parametersByToken[token]
	return p, ok
}

func (p Parameter) valid() bool { return p >= 0 && int(p) < len(parameterInfos) }

// String returns the header token of the parameter.
func (p Parameter) String() string {
	if !p.valid() {
		return "UNKNOWN"
	}
	return parameterInfos[p].token
}

// Label returns the human readable name used in reports.
func (p Parameter) Label() string {
	if !p.valid() {
		return ""
	}
	return parameterInfos[p].label
}

// Unit returns the unit suffix used in reports.
func (p Parameter) Unit() string {
	if !p.valid() {
		return ""
	}
	return parameterInfos[p].unit
}
