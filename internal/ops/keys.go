package ops

// Key layout shared with the public reader.
func decisionsKey(runDate string) string { return "ops:decisions:" + runDate }
func overrideKey(ticker string) string   { return "outlook:override:" + ticker }
func publishedKey(runDate string) string { return "ops:published:" + runDate }
func metaKey(ticker string) string       { return "ops:meta:" + ticker }
