package api

type RunDates struct {
	RunDates []string `json:"run_dates"`
}

type Error struct {
	Error string `json:"error"`
}
