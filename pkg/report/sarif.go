package report

import (
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/user/vulndash/pkg/engine"
)

const (
	sarifError   = "error"
	sarifWarning = "warning"
	sarifNote    = "note"
	sarifNone    = "none"
)

func toSarifLevel(s engine.Severity) string {
	switch s {
	case engine.SeverityCritical, engine.SeverityHigh:
		return sarifError
	case engine.SeverityMedium:
		return sarifWarning
	case engine.SeverityLow:
		return sarifNote
	default:
		return sarifNone
	}
}

func sarifReport(vulns []engine.Vulnerability) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}

	run := sarif.NewRunWithInformationURI("vulndash", "https://github.com/user/vulndash")

	// one rule per rule id, in order of first appearance
	ruleIndex := map[string]int{}
	for _, v := range vulns {
		id := ruleID(v)
		if _, ok := ruleIndex[id]; ok {
			continue
		}
		run.AddRule(id).
			WithName(id).
			WithDescription(v.Title)
		ruleIndex[id] = len(ruleIndex)
	}

	for _, v := range vulns {
		region := sarif.NewRegion()
		if v.Line > 0 {
			region.WithStartLine(v.Line)
		}
		loc := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(v.File)).
				WithRegion(region),
		)

		msg := v.Title
		if v.Description != "" {
			msg += ": " + v.Description
		}
		result := sarif.NewRuleResult(ruleID(v)).
			WithRuleIndex(ruleIndex[ruleID(v)]).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel(toSarifLevel(v.Severity)).
			WithLocations([]*sarif.Location{loc})
		run.AddResult(result)
	}

	report.AddRun(run)
	return report, nil
}

// rows without a rule are grouped under their title
func ruleID(v engine.Vulnerability) string {
	if v.Rule != "" {
		return v.Rule
	}
	return v.Title
}

// WriteSARIF writes a SARIF 2.1.0 log with one result per vulnerability.
func WriteSARIF(w io.Writer, vulns []engine.Vulnerability) error {
	report, err := sarifReport(vulns)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}
