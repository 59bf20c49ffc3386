package alignment

// ParseVerdictForTest exposes verdict parsing for tests.
var ParseVerdictForTest = parseVerdict
