/* Reactivity XML documents: one file per transcript, written by rf-norm and
rf-combine and consumed by rf-combine. The vector elements carry per-base
CSV values (NaN allowed), wrapped at 60 values per line; the sequence is
wrapped at 60 characters. */

package rfxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

/*Producing tools */
const (
	ToolNorm    = "rf-norm"
	ToolSilico  = "rf-silico"
	ToolModcall = "rf-modcall"
)

/*Document one per-transcript reactivity document */
type Document struct {
	Combined    bool
	Tool        string
	ReactiveSet string
	Scoring     string
	Norm        string
	Win         int
	Offset      int
	Remap       bool
	Algorithm   string

	MaxScore    float64
	PseudoCount float64
	MaxUMut     float64

	ID       string
	Length   int
	Sequence string

	Values1 []float64
	Values2 []float64
	Errors1 []float64
	Errors2 []float64
}

/*PrimaryName element name of the primary per-base vector */
func (d *Document) PrimaryName() string {
	switch d.Tool {
	case ToolSilico:
		return "probability"
	case ToolModcall:
		return "score"
	}

	return "reactivity"
}

/*SecondaryName element name of the secondary vector, empty when absent */
func (d *Document) SecondaryName() string {
	switch d.Tool {
	case ToolSilico:
		return "shannon"
	case ToolModcall:
		return "ratio"
	}

	return ""
}

func boolAttr(value bool) string {
	if value {
		return "TRUE"
	}

	return "FALSE"
}

func escapeAttr(value string) string {
	var buffer bytes.Buffer
	xml.EscapeText(&buffer, []byte(value))

	return buffer.String()
}

func writeWrapped(buffer *bytes.Buffer, indent, text string, width int) {
	for start := 0; start < len(text); start += width {
		end := start + width

		if end > len(text) {
			end = len(text)
		}

		buffer.WriteString(indent)
		buffer.WriteString(text[start:end])
		buffer.WriteRune('\n')
	}
}

func writeVector(buffer *bytes.Buffer, name string, values []float64, decimals int) {
	buffer.WriteString("\t\t<")
	buffer.WriteString(name)
	buffer.WriteString(">\n\t\t\t")

	var csv bytes.Buffer
	utils.FormatFloatVector(values, decimals, 60, &csv)

	buffer.WriteString(strings.ReplaceAll(csv.String(), "\n", "\n\t\t\t"))
	buffer.WriteString("\n\t\t</")
	buffer.WriteString(name)
	buffer.WriteString(">\n")
}

/*Write emit the document; vector values are rounded to decimals digits */
func (d *Document) Write(writer io.Writer, decimals int) error {
	var buffer bytes.Buffer

	buffer.WriteString(xml.Header)

	reactiveAttr := "reactive"

	if d.Tool == ToolModcall {
		reactiveAttr = "keep"
	}

	fmt.Fprintf(&buffer, `<data combined="%s" %s="%s" scoring="%s" norm="%s" win="%d" offset="%d" remap="%s"`,
		boolAttr(d.Combined), reactiveAttr, escapeAttr(d.ReactiveSet),
		escapeAttr(d.Scoring), escapeAttr(d.Norm), d.Win, d.Offset,
		boolAttr(d.Remap))

	if d.Algorithm != "" {
		fmt.Fprintf(&buffer, ` algorithm="%s"`, escapeAttr(d.Algorithm))
	}

	if d.Tool == ToolNorm {
		fmt.Fprintf(&buffer, ` max="%.2f" pseudo="%.2f" maxumut="%.2f"`,
			d.MaxScore, d.PseudoCount, d.MaxUMut)
	}

	fmt.Fprintf(&buffer, ` tool="%s">%s`, escapeAttr(d.Tool), "\n")

	fmt.Fprintf(&buffer, "\t<transcript id=\"%s\" length=\"%d\">\n",
		escapeAttr(d.ID), d.Length)

	buffer.WriteString("\t\t<sequence>\n")
	writeWrapped(&buffer, "\t\t\t", d.Sequence, 60)
	buffer.WriteString("\t\t</sequence>\n")

	writeVector(&buffer, d.PrimaryName(), d.Values1, decimals)

	if d.SecondaryName() != "" && d.Values2 != nil {
		writeVector(&buffer, d.SecondaryName(), d.Values2, decimals)
	}

	if d.Errors1 != nil {
		writeVector(&buffer, d.PrimaryName()+"-error", d.Errors1, decimals)
	}

	if d.SecondaryName() != "" && d.Errors2 != nil {
		writeVector(&buffer, d.SecondaryName()+"-error", d.Errors2, decimals)
	}

	buffer.WriteString("\t</transcript>\n</data>\n")

	_, err := writer.Write(buffer.Bytes())

	return err
}

/*WriteFile ... */
func (d *Document) WriteFile(fname string, decimals int) error {
	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	return d.Write(writer, decimals)
}

type xmlTranscript struct {
	ID               string `xml:"id,attr"`
	Length           int    `xml:"length,attr"`
	Sequence         string `xml:"sequence"`
	Reactivity       string `xml:"reactivity"`
	Probability      string `xml:"probability"`
	Shannon          string `xml:"shannon"`
	Score            string `xml:"score"`
	Ratio            string `xml:"ratio"`
	ReactivityError  string `xml:"reactivity-error"`
	ProbabilityError string `xml:"probability-error"`
	ShannonError     string `xml:"shannon-error"`
	ScoreError       string `xml:"score-error"`
	RatioError       string `xml:"ratio-error"`
}

type xmlData struct {
	XMLName    xml.Name      `xml:"data"`
	Combined   string        `xml:"combined,attr"`
	Tool       string        `xml:"tool,attr"`
	Reactive   string        `xml:"reactive,attr"`
	Keep       string        `xml:"keep,attr"`
	Scoring    string        `xml:"scoring,attr"`
	Norm       string        `xml:"norm,attr"`
	Win        string        `xml:"win,attr"`
	Offset     string        `xml:"offset,attr"`
	Remap      string        `xml:"remap,attr"`
	Algorithm  string        `xml:"algorithm,attr"`
	Max        string        `xml:"max,attr"`
	Pseudo     string        `xml:"pseudo,attr"`
	MaxUMut    string        `xml:"maxumut,attr"`
	Transcript xmlTranscript `xml:"transcript"`
}

func stripWhitespace(text string) string {
	var builder strings.Builder

	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

func parseVector(text string) ([]float64, error) {
	var lines []string

	// wrapped lines carry no trailing comma: a line break separates values
	for _, line := range strings.Split(text, "\n") {
		if clean := stripWhitespace(line); clean != "" {
			lines = append(lines, clean)
		}
	}

	if len(lines) == 0 {
		return nil, nil
	}

	fields := strings.Split(strings.Join(lines, ","), ",")
	values := make([]float64, len(fields))

	for i, field := range fields {
		if strings.EqualFold(field, "NaN") {
			values[i] = math.NaN()
			continue
		}

		value, err := strconv.ParseFloat(field, 64)

		if err != nil {
			return nil, fmt.Errorf("non-numeric value %q at position %d", field, i)
		}

		values[i] = value
	}

	return values, nil
}

func parseOptionalFloat(text string) float64 {
	value, err := strconv.ParseFloat(text, 64)

	if err != nil {
		return 0
	}

	return value
}

/*Parse read one reactivity document from a (possibly compressed) file */
func Parse(fname string) (*Document, error) {
	reader, err := utils.ReturnReadCloser(fname)

	if err != nil {
		return nil, err
	}

	defer reader.Close()

	return ParseReader(reader)
}

/*ParseReader ... */
func ParseReader(reader io.Reader) (*Document, error) {
	var raw xmlData

	decoder := xml.NewDecoder(reader)

	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}

	doc := &Document{
		Combined:    strings.EqualFold(raw.Combined, "TRUE"),
		Tool:        raw.Tool,
		ReactiveSet: raw.Reactive,
		Scoring:     raw.Scoring,
		Norm:        raw.Norm,
		Remap:       strings.EqualFold(raw.Remap, "TRUE"),
		Algorithm:   raw.Algorithm,
		MaxScore:    parseOptionalFloat(raw.Max),
		PseudoCount: parseOptionalFloat(raw.Pseudo),
		MaxUMut:     parseOptionalFloat(raw.MaxUMut),
		ID:          raw.Transcript.ID,
		Length:      raw.Transcript.Length,
		Sequence:    stripWhitespace(raw.Transcript.Sequence),
	}

	if doc.ReactiveSet == "" {
		doc.ReactiveSet = raw.Keep
	}

	doc.Win, _ = strconv.Atoi(raw.Win)
	doc.Offset, _ = strconv.Atoi(raw.Offset)

	var primary, secondary, primaryErr, secondaryErr string

	switch doc.Tool {
	case ToolSilico:
		primary, secondary = raw.Transcript.Probability, raw.Transcript.Shannon
		primaryErr, secondaryErr = raw.Transcript.ProbabilityError, raw.Transcript.ShannonError
	case ToolModcall:
		primary, secondary = raw.Transcript.Score, raw.Transcript.Ratio
		primaryErr, secondaryErr = raw.Transcript.ScoreError, raw.Transcript.RatioError
	default:
		primary = raw.Transcript.Reactivity
		primaryErr = raw.Transcript.ReactivityError
	}

	var err error

	if doc.Values1, err = parseVector(primary); err != nil {
		return nil, err
	}

	if doc.Values2, err = parseVector(secondary); err != nil {
		return nil, err
	}

	if doc.Errors1, err = parseVector(primaryErr); err != nil {
		return nil, err
	}

	if doc.Errors2, err = parseVector(secondaryErr); err != nil {
		return nil, err
	}

	if doc.Length == 0 {
		doc.Length = len(doc.Sequence)
	}

	if len(doc.Sequence) != doc.Length || (doc.Values1 != nil && len(doc.Values1) != doc.Length) {
		return nil, fmt.Errorf("document %s: sequence/vector lengths disagree with length attribute %d",
			doc.ID, doc.Length)
	}

	return doc, nil
}
