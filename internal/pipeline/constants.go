package pipeline

// Diagram notation and labelling constants.
// The header lines are consumed verbatim by the Mermaid renderer.
const (
	// UnknownWallet labels a transaction endpoint that carries no wallet,
	// i.e. the outside world of a deposit or a withdrawal.
	UnknownWallet = "UnknownWallet"

	// DiagramHeader is the first line of every generated diagram.
	DiagramHeader = "sequenceDiagram"

	// AutonumberDirective numbers the arrows of the diagram.
	AutonumberDirective = "autonumber"

	// indent prefixes every line after the header.
	indent = "    "

	// maxFractionDigits bounds the precision of rendered amounts.
	maxFractionDigits = 8

	// noteThreshold hides balance changes that are float noise.
	noteThreshold = 0.000001
)
