package types

type UISnapshot struct {
	Type    string         `json:"type"`
	Results []Result       `json:"results"`
	Orders  map[string]int `json:"orders"`
}

type UIEvent struct {
	Type   string `json:"type"`
	Result Result `json:"result"`
}
