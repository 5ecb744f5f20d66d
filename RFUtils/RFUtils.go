package rfutils

import (
	"bufio"
	"bytes"
	originalbzip2 "compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dsnet/compress/bzip2"
	gzip "github.com/klauspost/pgzip"
)

/*Filename type used to check if files exists */
type Filename string

/*Set ... */
func (i *Filename) Set(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		panic(fmt.Sprintf("!!!!Error %s with file: %s\n", err, filename))
	}

	*i = Filename(filename)
	return nil
}

func (i *Filename) String() string {
	return string(*i)
}

/*ReturnReader Return reader for file */
func (i *Filename) ReturnReader(startingLine int) (*bufio.Scanner, *os.File) {
	return ReturnReader(string(*i), startingLine)
}

type closer interface {
	Close() error
}

/*ArrayFlags ... */
type ArrayFlags []string

/*String ... */
func (i *ArrayFlags) String() string {
	var str string
	for _, s := range *i {
		str = str + "\t" + s
	}

	return str
}

/*Set ... */
func (i *ArrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

/*Skip reasons: one counter per reason, spec'd at the per-transcript boundary */
var (
	ErrLowCoverage = errors.New("coverage below threshold")
	ErrSeqMismatch = errors.New("sequence mismatch between samples")
	ErrMissing     = errors.New("transcript missing from input")
	ErrNonNumeric  = errors.New("non-numeric profile")
)

/*Check ... */
func Check(err error) {
	if err != nil {
		panic(err)
	}
}

/*CloseFile close file checking error */
func CloseFile(file closer) {
	err := file.Close()
	Check(err)
}

/*ReturnWriter return a writer switching on the file extension (.gz/.bz2/plain) */
func ReturnWriter(fname string) io.WriteCloser {

	ext := path.Ext(fname)
	var bzipFile io.WriteCloser
	var err error

	switch ext {
	case ".bz2":
		bzipFile = ReturnWriterForBzipfile(fname)

	case ".gz":
		bzipFile = ReturnWriterForGzipFile(fname)
	default:
		bzipFile, err = os.Create(fname)
		Check(err)
	}

	return bzipFile
}

/*ReturnWriterForGzipFile ... */
func ReturnWriterForGzipFile(fname string) io.WriteCloser {
	outputFile, err := os.Create(fname)
	Check(err)
	bzipFile := gzip.NewWriter(outputFile)

	return bzipFile
}

/*ReturnWriterForBzipfile ... */
func ReturnWriterForBzipfile(fname string) *bzip2.Writer {
	outputFile, err := os.Create(fname)
	Check(err)
	bzipFile, err := bzip2.NewWriter(outputFile, new(bzip2.WriterConfig))
	Check(err)

	return bzipFile
}

/*ReturnReader Return a line scanner for a (possibly compressed) text file */
func ReturnReader(fname string, startingLine int) (*bufio.Scanner, *os.File) {
	ext := path.Ext(fname)
	var scanner *bufio.Scanner
	var fileOpen *os.File
	var err error

	switch ext {
	case ".bz2":
		fileOpen, err = os.Open(fname)
		Check(err)
		scanner = bufio.NewScanner(originalbzip2.NewReader(bufio.NewReader(fileOpen)))

	case ".gz":
		fileOpen, err = os.Open(fname)
		Check(err)
		readerGzip, errGz := gzip.NewReader(bufio.NewReader(fileOpen))
		Check(errGz)
		scanner = bufio.NewScanner(readerGzip)
	default:
		fileOpen, err = os.Open(fname)
		Check(err)
		scanner = bufio.NewScanner(fileOpen)
	}

	if startingLine > 0 {
		scanUntilStartingLine(scanner, startingLine)
	}

	return scanner, fileOpen
}

/*scanUntilStartingLine ... */
func scanUntilStartingLine(scanner *bufio.Scanner, nbLine int) {
	var ok bool
	for i := 0; i < nbLine; i++ {
		ok = scanner.Scan()

		if !ok {
			break
		}
	}
}

/*ReturnReadCloser return a byte reader switching on the file extension */
func ReturnReadCloser(fname string) (io.ReadCloser, error) {
	fileOpen, err := os.Open(fname)

	if err != nil {
		return nil, err
	}

	switch path.Ext(fname) {
	case ".bz2":
		return &wrappedReadCloser{
			originalbzip2.NewReader(bufio.NewReader(fileOpen)), fileOpen}, nil

	case ".gz":
		readerGzip, errGz := gzip.NewReader(bufio.NewReader(fileOpen))

		if errGz != nil {
			fileOpen.Close()
			return nil, errGz
		}

		return &wrappedReadCloser{readerGzip, fileOpen}, nil
	}

	return fileOpen, nil
}

type wrappedReadCloser struct {
	reader io.Reader
	file   *os.File
}

func (w *wrappedReadCloser) Read(p []byte) (int, error) {
	return w.reader.Read(p)
}

func (w *wrappedReadCloser) Close() error {
	return w.file.Close()
}

/*LoadIDList load one ID per line (first tab-separated field) */
func LoadIDList(fname Filename) map[string]bool {
	scanner, file := fname.ReturnReader(0)
	defer CloseFile(file)

	iddict := make(map[string]bool)

	var id string

	for scanner.Scan() {
		id = scanner.Text()
		id = strings.ReplaceAll(id, " ", "\t")
		id = strings.Split(id, "\t")[0]

		if id == "" {
			continue
		}

		iddict[id] = true
	}

	return iddict
}

/*FormatFloatVector CSV-format a float vector, NaN as "NaN", wrapped at perLine values */
func FormatFloatVector(values []float64, decimals, perLine int, buffer *bytes.Buffer) {
	for i, v := range values {
		if i > 0 {
			if i%perLine == 0 {
				buffer.WriteRune('\n')
			} else {
				buffer.WriteRune(',')
			}
		}

		if v != v {
			buffer.WriteString("NaN")
		} else {
			fmt.Fprintf(buffer, "%.*f", decimals, v)
		}
	}
}
