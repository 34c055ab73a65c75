package params

const (
	// ParamsKeyPauses stores the module pause configuration.
	ParamsKeyPauses = "system/pauses"
	// ParamsKeyEngine stores the credit, XP and fee parameters as one
	// document so an update lands atomically.
	ParamsKeyEngine = "system/engine"
)
