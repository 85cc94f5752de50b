package shift

// IsRequalified reports whether night presence is paid as effective work.
// Only night_presence and guard_24h shifts can be requalified; they are
// once interventions reach threshold.
func IsRequalified(kind Kind, interventions, threshold int) bool {
	if kind != KindNightPresence && kind != KindGuard24h {
		return false
	}
	return interventions >= threshold
}

// Requalified applies IsRequalified to the shift.
func (s Shift) Requalified(threshold int) bool {
	return IsRequalified(s.Kind, s.NightInterventions, threshold)
}
