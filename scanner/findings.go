package scanner

// Match is a single scored reason attached to a finding.
type Match struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}

// SampleInfo carries the forensic metadata of a matched file.
type SampleInfo struct {
	MD5        string `json:"md5"`
	SHA1       string `json:"sha1"`
	SHA256     string `json:"sha256"`
	AccessTime string `json:"access_time,omitempty"`
	ModTime    string `json:"mod_time,omitempty"`
	ChangeTime string `json:"change_time,omitempty"`
}

// Finding is the payload written for every matched file or process.
type Finding struct {
	FilePath    string      `json:"file_path,omitempty"`
	ProcessID   int32       `json:"process_id,omitempty"`
	ProcessName string      `json:"process_name,omitempty"`
	Score       int         `json:"score"`
	Matches     []Match     `json:"matches"`
	Sample      *SampleInfo `json:"sample,omitempty"`
}

// matchList accumulates matches up to a fixed cap. Matches past the cap are
// dropped and do not contribute to the total score, so a file saturated with
// hits cannot grow an unbounded record.
type matchList struct {
	matches []Match
	cap     int
	dropped int
}

func newMatchList(cap int) *matchList {
	if cap <= 0 {
		cap = 100
	}
	return &matchList{cap: cap}
}

func (l *matchList) add(message string, score int) {
	if len(l.matches) >= l.cap {
		l.dropped++
		return
	}
	l.matches = append(l.matches, Match{Message: message, Score: score})
}

func (l *matchList) total() int {
	sum := 0
	for _, m := range l.matches {
		sum += m.Score
	}
	return sum
}

func (l *matchList) empty() bool {
	return len(l.matches) == 0
}
