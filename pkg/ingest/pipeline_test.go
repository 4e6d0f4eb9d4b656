package ingest

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vulndash/pkg/engine"
)

var fixedNow = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func testPipeline(opts ...Option) *Pipeline {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

const fullHeader = "severity,title,description,file,line,rule,branch,commit"

func TestIngest_FullRow(t *testing.T) {
	raw := fullHeader + "\ncritical,SQL Injection,desc,a.js,10,rule1,main,abc123"

	got := testPipeline().Ingest(raw)
	require.Len(t, got, 1)

	v := got[0]
	assert.Equal(t, engine.SeverityCritical, v.Severity)
	assert.Equal(t, "SQL Injection", v.Title)
	assert.Equal(t, "desc", v.Description)
	assert.Equal(t, "a.js", v.File)
	assert.Equal(t, 10, v.Line)
	assert.Equal(t, "rule1", v.Rule)
	assert.Equal(t, "main", v.Branch)
	assert.Equal(t, "abc123", v.Commit)
	assert.Equal(t, fixedNow, v.Timestamp)
	assert.Equal(t, "vuln-"+strconv.FormatInt(fixedNow.UnixMilli(), 10)+"-0", v.ID)
}

func TestIngest_AllEmptyRowIsDropped(t *testing.T) {
	assert.Empty(t, testPipeline().Ingest("severity,title,file\n,,"))
}

func TestIngest_NonNumericLine(t *testing.T) {
	got := testPipeline().Ingest("severity,title,file,line\nhigh,XSS,b.js,abc")
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Line)
}

func TestIngest_MissingBranchAndCommitColumns(t *testing.T) {
	got := testPipeline().Ingest("severity,title,file\nlow,Info Leak,c.js")
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0].Branch)
	assert.Equal(t, "unknown", got[0].Commit)
}

func TestIngest_FewerThanTwoLines(t *testing.T) {
	for _, raw := range []string{
		"",
		"   \n\n  ",
		fullHeader,
		fullHeader + "\n",
		"critical,SQL Injection,desc,a.js,10,rule1,main,abc123",
	} {
		got := testPipeline().Ingest(raw)
		assert.NotNil(t, got)
		assert.Empty(t, got, "input %q", raw)
	}
}

func TestIngest_PreservesOrderAndDropsInvalid(t *testing.T) {
	raw := strings.Join([]string{
		"severity,title,file",
		"critical,First,a.js",
		"high,,b.js",
		"medium,Second,c.js",
		",Third,d.js",
		"low,Fourth,",
		"low,Fifth,e.js",
	}, "\n")

	got := testPipeline().Ingest(raw)
	require.Len(t, got, 3)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)
	assert.Equal(t, "Fifth", got[2].Title)

	// ids number the validated output, so they stay unique within the batch
	ids := map[string]bool{}
	for _, v := range got {
		ids[v.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.True(t, strings.HasSuffix(got[2].ID, "-2"))
}

func TestIngest_RequiredFieldsOnly(t *testing.T) {
	got := testPipeline().Ingest("severity,title,file\nhigh,Only required,x.go")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Description)
	assert.Equal(t, "", got[0].Rule)
	assert.Equal(t, 0, got[0].Line)
}

func TestIngest_MissingTitleDropsCompleteRow(t *testing.T) {
	raw := fullHeader + "\ncritical,,desc,a.js,10,rule1,main,abc123"
	assert.Empty(t, testPipeline().Ingest(raw))
}

func TestIngest_WhitespaceOnlyRequiredFieldIsInvalid(t *testing.T) {
	assert.Empty(t, testPipeline().Ingest("severity,title,file\nhigh,   ,a.js"))
}

func TestIngest_SeverityLowercased(t *testing.T) {
	got := testPipeline().Ingest("severity,title,file\nCRITICAL,A,a.js\nHigh,B,b.js")
	require.Len(t, got, 2)
	assert.Equal(t, engine.SeverityCritical, got[0].Severity)
	assert.Equal(t, engine.SeverityHigh, got[1].Severity)
}

func TestIngest_ShortAndLongRows(t *testing.T) {
	raw := fullHeader + "\n" +
		"high,Short,desc,a.js\n" +
		"low,Long,desc,b.js,7,r,dev,ffff,extra,values"

	got := testPipeline().Ingest(raw)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Line)
	assert.Equal(t, "main", got[0].Branch)
	assert.Equal(t, "unknown", got[0].Commit)

	assert.Equal(t, 7, got[1].Line)
	assert.Equal(t, "dev", got[1].Branch)
	assert.Equal(t, "ffff", got[1].Commit)
}

func TestIngest_HeaderOrderAndSpacing(t *testing.T) {
	raw := " file , severity ,title\r\n  a.js , MEDIUM , Weak Hash \r\n"
	got := testPipeline().Ingest(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "a.js", got[0].File)
	assert.Equal(t, engine.SeverityMedium, got[0].Severity)
	assert.Equal(t, "Weak Hash", got[0].Title)
}

func TestIngest_DuplicateHeaderLastWins(t *testing.T) {
	got := testPipeline().Ingest("severity,title,file,title\nhigh,first,a.js,second")
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Title)
}

func TestIngest_ByteOrderMark(t *testing.T) {
	got := testPipeline().Ingest("\ufeffseverity,title,file\nlow,A,a.js")
	require.Len(t, got, 1)
	assert.Equal(t, engine.SeverityLow, got[0].Severity)
}

func TestIngest_Idempotent(t *testing.T) {
	raw := fullHeader + "\ncritical,A,d,a.js,1,r,main,c\nlow,B,d,b.js,2,r,dev,"

	first := New().Ingest(raw)
	time.Sleep(2 * time.Millisecond)
	second := New().Ingest(raw)

	require.Len(t, second, len(first))
	for i := range first {
		a, b := first[i], second[i]
		a.ID, b.ID = "", ""
		a.Timestamp, b.Timestamp = time.Time{}, time.Time{}
		assert.Equal(t, a, b)
	}
}

func TestIngest_RoundTrip(t *testing.T) {
	original := testPipeline().Ingest(fullHeader + "\nHigh,Path Traversal,unsafe path,src/utils/fileHandler.js,23,security.detect-path-traversal,feature/file-upload,def456g")
	require.Len(t, original, 1)
	v := original[0]

	row := strings.Join([]string{
		string(v.Severity), v.Title, v.Description, v.File,
		strconv.Itoa(v.Line), v.Rule, v.Branch, v.Commit,
	}, Delimiter)

	again := testPipeline().Ingest(strings.Join(Columns, Delimiter) + "\n" + row)
	require.Len(t, again, 1)
	assert.Equal(t, v.Severity, again[0].Severity)
	assert.Equal(t, v.Title, again[0].Title)
	assert.Equal(t, v.File, again[0].File)
}

func TestIngest_QuotedFieldsDefaultSplitter(t *testing.T) {
	raw := `severity,title,file` + "\n" + `high,"Injection, blind",a.js`

	// the default splitter does not interpret quotes
	got := testPipeline().Ingest(raw)
	require.Len(t, got, 1)
	assert.Equal(t, `"Injection`, got[0].Title)
	assert.Equal(t, `blind"`, got[0].File)
}

func TestIngest_QuotedFieldsOption(t *testing.T) {
	raw := `severity,title,description,file` + "\n" +
		`critical,"Injection, blind","Unsanitized ""id"" parameter",a.js` + "\n" +
		"\n" +
		`low,Plain,desc,b.js`

	got := testPipeline(WithQuotedFields()).Ingest(raw)
	require.Len(t, got, 2)
	assert.Equal(t, "Injection, blind", got[0].Title)
	assert.Equal(t, `Unsanitized "id" parameter`, got[0].Description)
	assert.Equal(t, "a.js", got[0].File)
	assert.Equal(t, "Plain", got[1].Title)
}

func TestIngestWithStats(t *testing.T) {
	raw := "severity,title,file\ncritical,A,a.js\n,,\nhigh,,b.js"

	got, stats := testPipeline().IngestWithStats(raw)
	assert.Len(t, got, 1)
	assert.Equal(t, Stats{Rows: 3, Valid: 1, Dropped: 2}, stats)

	_, stats = testPipeline().IngestWithStats("severity,title,file")
	assert.Equal(t, Stats{}, stats)
}

func TestIngest_Concurrent(t *testing.T) {
	p := New()
	raw := fullHeader + "\ncritical,A,d,a.js,1,r,main,c\nlow,B,d,b.js,2,r,dev,x"

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, p.Ingest(raw), 2)
		}()
	}
	wg.Wait()
}

func TestParseLine(t *testing.T) {
	for in, want := range map[string]int{
		"10":    10,
		" 42 ":  42,
		"10abc": 10,
		"-3":    -3,
		"+7":    7,
		"abc":   0,
		"":      0,
		"-":     0,
		"12.5":  12,
	} {
		assert.Equal(t, want, parseLine(in), "input %q", in)
	}
}
