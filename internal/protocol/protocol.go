// Package protocol implements the line-oriented ASCII command server: a
// small parser with OK/ERR framing and a BEGIN/END block mode for bulk
// table uploads. Application state is reached only through the Backend
// interface, so the server owns framing and session state and nothing else.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/adstech/opensink/internal/luts"
)

// CmdError is a protocol-boundary error carrying the numeric code and reason
// token for an ERR response line.
type CmdError struct {
	Code  int
	Token string
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("ERR %d %s", e.Code, e.Token)
}

func NewCmdError(code int, token string) *CmdError {
	return &CmdError{Code: code, Token: token}
}

// Backend is the operation set the server drives. One concrete controller
// implements it; tests substitute a mock.
type Backend interface {
	Version() string
	Status() (console bool, data bool)
	ParamLines() []string
	SetParam(key string, value string) error
	TempDutyLUT() []luts.TempDutyPoint
	InstallTempDutyLUT(points []luts.TempDutyPoint) error
	AdcTempLUT() []luts.AdcTempPoint
	InstallAdcTempLUT(points []luts.AdcTempPoint) error
	FanAuto()
	FanDuty(duty float64) error
	TelemRate(ms int)
	TelemFormat(format string) error
	SaveSettings() (info string, err error)
	LoadDefaults()
	Reboot()
}

// LineConn is the transport surface the server needs.
type LineConn interface {
	ReadLine() (line string, ok bool)
	WriteLine(line string)
}

type rxMode int

const (
	rxIdle rxMode = iota
	rxTempDuty
	rxAdcTemp
)

// Server parses commands terminated by CR/LF and writes framed responses.
// Not safe for concurrent use; Poll is called from the control loop only.
type Server struct {
	conn    LineConn
	backend Backend

	mode     rxMode
	expected int
	rows     []string
}

func NewServer(conn LineConn, backend Backend) *Server {
	return &Server{conn: conn, backend: backend}
}

// Poll processes at most one incoming line. Returns true if a line was
// consumed.
func (s *Server) Poll() bool {
	line, ok := s.conn.ReadLine()
	if !ok {
		return false
	}
	s.handleLine(strings.TrimSpace(line))
	return true
}

func (s *Server) ok(lines []string, end bool) {
	s.conn.WriteLine("OK")
	for _, l := range lines {
		s.conn.WriteLine(l)
	}
	if end {
		s.conn.WriteLine("END")
	}
}

func (s *Server) err(code int, token string) {
	s.conn.WriteLine(fmt.Sprintf("ERR %d %s", code, token))
}

func (s *Server) errFrom(err error) {
	var cmdErr *CmdError
	if errors.As(err, &cmdErr) {
		s.err(cmdErr.Code, cmdErr.Token)
		return
	}
	s.err(400, "PARSE")
}

func (s *Server) handleLine(line string) {
	if line == "" {
		return
	}

	switch s.mode {
	case rxTempDuty:
		s.receiveRow(line, "SET LUT TEMP_TO_DUTY END", s.finalizeTempDuty)
		return
	case rxAdcTemp:
		s.receiveRow(line, "SET LUT ADC_TO_TEMP_5C END", s.finalizeAdcTemp)
		return
	}

	up := strings.ToUpper(line)

	switch {
	case up == "PING":
		s.conn.WriteLine("PONG")

	case up == "QUIET":
		s.backend.TelemRate(0)
		s.ok(nil, false)

	case up == "VER?":
		s.conn.WriteLine("VER " + s.backend.Version())

	case up == "STATUS?":
		console, data := s.backend.Status()
		s.ok([]string{
			fmt.Sprintf("CONSOLE_CONNECTED=%d", boolBit(console)),
			fmt.Sprintf("DATA_CONNECTED=%d", boolBit(data)),
		}, true)

	case up == "HELP":
		s.ok(helpLines, true)

	case up == "GET PARAMS":
		s.ok(s.backend.ParamLines(), true)

	case up == "GET LUT TEMP_TO_DUTY":
		points := s.backend.TempDutyLUT()
		out := []string{fmt.Sprintf("COUNT %d", len(points))}
		for i, p := range points {
			out = append(out, fmt.Sprintf("%d,%s,%s", i, formatFloat(p.TempC), formatFloat(p.Duty)))
		}
		s.ok(out, true)

	case up == "GET LUT ADC_TO_TEMP_5C":
		points := s.backend.AdcTempLUT()
		out := []string{fmt.Sprintf("COUNT %d", len(points))}
		for i, p := range points {
			out = append(out, fmt.Sprintf("%d,%d,%s", i, p.Count, formatFloat(p.TempC)))
		}
		s.ok(out, true)

	case strings.HasPrefix(up, "SET LUT TEMP_TO_DUTY BEGIN"):
		s.beginUpload(line, rxTempDuty)

	case strings.HasPrefix(up, "SET LUT ADC_TO_TEMP_5C BEGIN"):
		s.beginUpload(line, rxAdcTemp)

	case strings.HasPrefix(up, "SET "):
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			s.err(400, "PARSE")
			return
		}
		if err := s.backend.SetParam(strings.TrimSpace(fields[1]), strings.TrimSpace(fields[2])); err != nil {
			s.errFrom(err)
			return
		}
		s.ok(nil, false)

	case up == "FAN AUTO":
		s.backend.FanAuto()
		s.ok(nil, false)

	case strings.HasPrefix(up, "FAN DUTY"):
		fields := strings.Fields(line)
		if len(fields) < 3 {
			s.err(400, "PARSE")
			return
		}
		duty, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			s.err(400, "PARSE")
			return
		}
		if err := s.backend.FanDuty(duty); err != nil {
			s.errFrom(err)
			return
		}
		s.ok(nil, false)

	case strings.HasPrefix(up, "TELEM RATE"):
		fields := strings.Fields(line)
		if len(fields) < 3 {
			s.err(400, "PARSE")
			return
		}
		ms, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			s.err(400, "PARSE")
			return
		}
		s.backend.TelemRate(int(ms))
		s.ok(nil, false)

	case strings.HasPrefix(up, "TELEM FORMAT"):
		fields := strings.Fields(line)
		if len(fields) < 3 {
			s.err(400, "PARSE")
			return
		}
		if err := s.backend.TelemFormat(strings.ToUpper(fields[2])); err != nil {
			s.errFrom(err)
			return
		}
		s.ok(nil, false)

	case up == "SAVE":
		info, err := s.backend.SaveSettings()
		if err != nil {
			var cmdErr *CmdError
			if errors.As(err, &cmdErr) {
				s.err(cmdErr.Code, cmdErr.Token)
			} else {
				s.err(500, err.Error())
			}
			return
		}
		s.ok([]string{info}, false)

	case up == "DEFAULTS":
		s.backend.LoadDefaults()
		s.ok(nil, false)

	case up == "REBOOT":
		s.conn.WriteLine("OK")
		s.backend.Reboot()

	default:
		s.err(400, "UNKNOWN")
	}
}

var helpLines = []string{
	"PING",
	"QUIET",
	"VER?",
	"HELP",
	"STATUS?",
	"GET PARAMS",
	"SET <KEY> <VALUE>",
	"GET LUT TEMP_TO_DUTY",
	"SET LUT TEMP_TO_DUTY BEGIN <count>  (idx,temp,duty ... )  SET LUT TEMP_TO_DUTY END",
	"GET LUT ADC_TO_TEMP_5C",
	"SET LUT ADC_TO_TEMP_5C BEGIN <count> (idx,adc,temp ... ) SET LUT ADC_TO_TEMP_5C END",
	"FAN AUTO",
	"FAN DUTY <0.0..1.0>",
	"TELEM RATE <ms>",
	"TELEM FORMAT CSV|HUMAN",
	"SAVE",
	"DEFAULTS",
	"REBOOT",
}

func (s *Server) beginUpload(line string, mode rxMode) {
	fields := strings.Fields(line)
	count, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || count < 0 {
		s.err(400, "PARSE")
		return
	}
	s.mode = mode
	s.expected = count
	s.rows = nil
	s.ok(nil, false)
}

// receiveRow runs the block receive mode: every line until the matching END
// is buffered verbatim and acknowledged; the END line triggers finalize.
func (s *Server) receiveRow(line, endMarker string, finalize func()) {
	if strings.HasPrefix(strings.ToUpper(line), endMarker) {
		finalize()
		s.mode = rxIdle
		s.rows = nil
		s.expected = 0
		return
	}
	s.rows = append(s.rows, line)
	s.conn.WriteLine("OK")
}

// parseRows parses the buffered rows as (index, a, b) tuples and returns
// them sorted by index. A single malformed row fails the whole batch.
func (s *Server) parseRows() ([][3]float64, *CmdError) {
	parsed := make([][3]float64, 0, len(s.rows))
	for _, row := range s.rows {
		parts := strings.Split(row, ",")
		if len(parts) != 3 {
			return nil, NewCmdError(400, "PARSE")
		}
		var tuple [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, NewCmdError(400, "PARSE")
			}
			tuple[i] = v
		}
		parsed = append(parsed, tuple)
	}
	if len(parsed) != s.expected {
		return nil, NewCmdError(400, "COUNT_MISMATCH")
	}
	slices.SortStableFunc(parsed, func(a, b [3]float64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		default:
			return 0
		}
	})
	return parsed, nil
}

func (s *Server) finalizeTempDuty() {
	rows, cmdErr := s.parseRows()
	if cmdErr != nil {
		s.err(cmdErr.Code, cmdErr.Token)
		return
	}
	points := make([]luts.TempDutyPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, luts.TempDutyPoint{TempC: r[1], Duty: r[2]})
	}
	if err := s.backend.InstallTempDutyLUT(points); err != nil {
		s.errFrom(err)
		return
	}
	s.ok(nil, false)
}

func (s *Server) finalizeAdcTemp() {
	rows, cmdErr := s.parseRows()
	if cmdErr != nil {
		s.err(cmdErr.Code, cmdErr.Token)
		return
	}
	points := make([]luts.AdcTempPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, luts.AdcTempPoint{Count: int(r[1]), TempC: r[2]})
	}
	if err := s.backend.InstallAdcTempLUT(points); err != nil {
		s.errFrom(err)
		return
	}
	s.ok(nil, false)
}

func boolBit(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
