package core

// Foreground scheduling runs on a millisecond tick
const (
	TimerFreq = 1000
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time. Platforms feed it from their clock.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * TimerFreq / 1000
}

// ProcessTimers runs the timers due at the current system time
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
