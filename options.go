package wirefunc

// Severity expresses how a wire-level irregularity is treated.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement while reading wire text.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn (reported through ParseOpt.OnWarning) or Error.
}

// ParseOpt bundles wire parsing options. The zero value parses any
// well-formed document without limits, keeping the last duplicate key.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int   // maximum container nesting; 0 disables the check
	MaxBytes   int64 // maximum document size; 0 disables the check
	// OnWarning receives non-fatal issues (duplicate keys under Warn).
	OnWarning func(*ParseError)
}

// StrictParseOpt is the recommended option set for untrusted peers:
// duplicate keys are errors and nesting is capped.
func StrictParseOpt() ParseOpt {
	return ParseOpt{
		Strictness: Strictness{OnDuplicateKey: Error},
		MaxDepth:   64,
	}
}

func lastOpt(opts []ParseOpt) ParseOpt {
	if len(opts) == 0 {
		return ParseOpt{}
	}
	return opts[len(opts)-1]
}
