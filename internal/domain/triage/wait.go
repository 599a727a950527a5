package triage

// WaitUnknown is returned when no estimate can be made, e.g. when no doctor
// of the required specialization is available.
const WaitUnknown = -1

// EstimateWait returns the expected delay in minutes for a patient with
// position patients ahead of them. Fractional minutes round up.
func EstimateWait(position, avgConsultationMinutes, availableDoctors int) int {
	if availableDoctors <= 0 {
		return WaitUnknown
	}
	if position <= 0 || avgConsultationMinutes <= 0 {
		return 0
	}
	total := position * avgConsultationMinutes
	return (total + availableDoctors - 1) / availableDoctors
}
