package domain

// Label es la etiqueta de seguridad/explicitud que produce el clasificador.
type Label string

const (
	LabelSafe                    Label = "SAFE"
	LabelSuggestive              Label = "SUGGESTIVE"
	LabelExplicitConsensualAdult Label = "EXPLICIT_CONSENSUAL_ADULT"
	LabelExplicitFetish          Label = "EXPLICIT_FETISH"
	LabelNonconsensual           Label = "NONCONSENSUAL"
	LabelMinorRisk               Label = "MINOR_RISK"
)

// Restrictiveness ordena las etiquetas de mas permisiva a mas restrictiva.
// Los empates de confianza se resuelven hacia la mas restrictiva.
func (l Label) Restrictiveness() int {
	switch l {
	case LabelMinorRisk:
		return 5
	case LabelNonconsensual:
		return 4
	case LabelExplicitFetish:
		return 3
	case LabelExplicitConsensualAdult:
		return 2
	case LabelSuggestive:
		return 1
	default:
		return 0
	}
}

// IsExplicit agrupa las dos etiquetas que requieren verificacion de edad.
func (l Label) IsExplicit() bool {
	return l == LabelExplicitConsensualAdult || l == LabelExplicitFetish
}

// Classification es la salida pura del clasificador de contenido.
type Classification struct {
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"` // 0.0 - 1.0
	Indicators []string `json:"indicators"` // reglas que dispararon, legibles
}

// RouteState es el regimen de contenido vigente para una conversacion.
type RouteState string

const (
	RouteUnset       RouteState = "UNSET"
	RouteNormal      RouteState = "NORMAL"
	RouteRomance     RouteState = "ROMANCE"
	RouteExplicit    RouteState = "EXPLICIT"
	RouteFetish      RouteState = "FETISH"
	RouteRefused     RouteState = "REFUSED"
	RouteHardRefused RouteState = "HARD_REFUSED"
	RouteGatePending RouteState = "GATE_PENDING"
)

// IsExplicit indica si la ruta usa el proveedor secundario (sin censura).
func (r RouteState) IsExplicit() bool {
	return r == RouteExplicit || r == RouteFetish
}

// RouteAction es lo que el orquestador debe hacer con el turno actual.
type RouteAction string

const (
	ActionProceed        RouteAction = "PROCEED"
	ActionRequestAgeGate RouteAction = "REQUEST_AGE_VERIFICATION"
	ActionRefuseSoft     RouteAction = "REFUSE_SOFT"
	ActionRefuseHard     RouteAction = "REFUSE_HARD"
)
