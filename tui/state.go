package tui

type state int

const (
	resolvingState state = iota
	readyState
	errorState
)
