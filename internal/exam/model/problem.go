package model

// Problem is the single coding challenge attached to an exam.
type Problem struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	FunctionName string            `json:"function_name"`
	Languages    []string          `json:"languages"`
	StarterCode  map[string]string `json:"starter_code"`
	TestCases    []TestCase        `json:"test_cases"`
	TotalPoints  int               `json:"total_points"`
}

// TestCase is one grading unit.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Description    string `json:"description"`
	IsPublic       bool   `json:"is_public"`
	Points         int    `json:"points"`
}

// HasGradableCase reports whether at least one test case carries a non-empty
// expected output. A problem without one cannot be graded at all.
func (p *Problem) HasGradableCase() bool {
	for _, tc := range p.TestCases {
		if tc.ExpectedOutput != "" {
			return true
		}
	}
	return false
}

// PointsSum returns the sum of per-case points.
func (p *Problem) PointsSum() int {
	sum := 0
	for _, tc := range p.TestCases {
		sum += tc.Points
	}
	return sum
}

// AllowsLanguage reports whether the language is permitted for this problem.
// An empty language list permits any language.
func (p *Problem) AllowsLanguage(language string) bool {
	if len(p.Languages) == 0 {
		return true
	}
	for _, l := range p.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the problem.
func (p *Problem) Clone() *Problem {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Languages = append([]string(nil), p.Languages...)
	cp.TestCases = append([]TestCase(nil), p.TestCases...)
	cp.StarterCode = make(map[string]string, len(p.StarterCode))
	for lang, code := range p.StarterCode {
		cp.StarterCode[lang] = code
	}
	return &cp
}

// PublicView strips private test case answers. Private cases keep their
// description and points but hide input and expected output.
func (p *Problem) PublicView() *Problem {
	cp := p.Clone()
	if cp == nil {
		return nil
	}
	for i := range cp.TestCases {
		if !cp.TestCases[i].IsPublic {
			cp.TestCases[i].Input = ""
			cp.TestCases[i].ExpectedOutput = ""
		}
	}
	return cp
}
