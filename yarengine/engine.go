package yarengine

import "time"

// ExternalVars is the fixed schema of variables a rule condition may
// reference. It must stay in sync with the scanner's per-file context.
type ExternalVars struct {
	Filename  string
	Filepath  string
	Extension string
	Filetype  string
	Owner     string
}

func (v ExternalVars) lookup(name string) (string, bool) {
	switch name {
	case "filename":
		return v.Filename, true
	case "filepath":
		return v.Filepath, true
	case "extension":
		return v.Extension, true
	case "filetype":
		return v.Filetype, true
	case "owner":
		return v.Owner, true
	default:
		return "", false
	}
}

// RuleMatch reports one rule that fired during a scan.
type RuleMatch struct {
	Rule string
	Meta map[string]string
}

// Scanner is the capability surface the orchestrators consume. The in-tree
// implementation is RuleSet; tests substitute their own.
type Scanner interface {
	ScanBytes(data []byte, vars ExternalVars, timeout time.Duration) ([]RuleMatch, error)
	ScanProcess(pid int32, timeout time.Duration) ([]RuleMatch, error)
}
