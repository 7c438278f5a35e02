package core

// Timer is a foreground job run by TimerDispatch once WakeTime has passed.
// The handler returns SF_RESCHEDULE after moving WakeTime forward to run
// again, or SF_DONE.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// timeBefore compares tick counts across wraparound
func timeBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	insertTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	if timerList == nil || timeBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !timeBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// popDue removes the first timer if it is due
func popDue() *Timer {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if timerList == nil || timeBefore(currentTime, timerList.WakeTime) {
		return nil
	}
	timer := timerList
	timerList = timer.Next
	timer.Next = nil
	return timer
}

// TimerDispatch runs every due timer. Handlers run outside the critical
// section, so they may submit bus requests and wait for them.
func TimerDispatch() {
	for {
		timer := popDue()
		if timer == nil {
			return
		}
		if timer.Handler(timer) == SF_RESCHEDULE {
			ScheduleTimer(timer)
		}
	}
}

// ClearTimers drops every scheduled timer
func ClearTimers() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	timerList = nil
}
