package monitor

// Display is the status label and color hint shown to the user.
type Display struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var (
	NotMonitoring = Display{Label: "Not Monitoring", Color: "blue"}
	Monitoring    = Display{Label: "Monitoring", Color: "orange"}
	Awake         = Display{Label: "Awake", Color: "green"}
	Drowsy        = Display{Label: "Drowsy", Color: "red"}
	CameraError   = Display{Label: "Camera Error", Color: "red"}
)
