package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"examhall/internal/cli/command"
	httpclient "examhall/internal/cli/http"
	"examhall/internal/cli/state"

	"github.com/google/shlex"
)

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	session      *state.SessionState
	statePath    string
	prettyJSON   bool
	outputWriter *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, sessionState *state.SessionState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		session:      sessionState,
		statePath:    statePath,
		prettyJSON:   prettyJSON,
		outputWriter: bufio.NewWriter(os.Stdout),
	}
}

func (s *Session) Run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	for {
		_, _ = s.outputWriter.WriteString("examctl> ")
		_ = s.outputWriter.Flush()
		line, err := reader.ReadString('\n')
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.handleSystemCommand(line) {
			continue
		}

		if err := s.handleCommand(ctx, reader, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		os.Exit(0)
	case "help":
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if strings.HasPrefix(line, "use ") {
		s.handleUse(strings.TrimSpace(strings.TrimPrefix(line, "use ")))
		return true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleUse(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: use <exam_code> [participant_name]")
		return
	}
	s.session.ExamCode = strings.ToUpper(parts[0])
	if len(parts) > 1 {
		s.session.ParticipantName = parts[1]
	}
	if err := state.Save(s.statePath, *s.session); err != nil {
		s.printLine("save session failed: %v", err)
		return
	}
	s.printLine("using exam %s", s.session.ExamCode)
}

func (s *Session) handleShow(args string) {
	switch args {
	case "session":
		s.printLine("exam_code: %s", displayOr(s.session.ExamCode, "<empty>"))
		s.printLine("participant_name: %s", displayOr(s.session.ParticipantName, "<empty>"))
	case "config":
		s.printLine("statePath: %s", s.statePath)
	default:
		s.printLine("usage: show session|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, reader *bufio.Reader, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	service := tokens[0]
	action := tokens[1]
	key := fmt.Sprintf("%s %s", service, action)
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", service, action)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)

	s.applySessionDefaults(cmd, params)
	s.applyParamShortcuts(&cmd, params)
	if err := s.promptMissing(reader, &cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.rememberExamCode(cmd, resp.Body)
	return nil
}

// applySessionDefaults fills code/name from the remembered session so the
// host does not retype them per command.
func (s *Session) applySessionDefaults(cmd command.Command, params command.Params) {
	for _, field := range cmd.Fields {
		switch field.Name {
		case "code":
			if !params.Has("code") && s.session.ExamCode != "" {
				params.Set("code", s.session.ExamCode)
			}
		case "name":
			if !params.Has("name") && s.session.ParticipantName != "" {
				params.Set("name", s.session.ParticipantName)
			}
		}
	}
}

func (s *Session) applyParamShortcuts(cmd *command.Command, params command.Params) {
	if cmd.Service == "submit" && cmd.Action == "create" {
		if params.Get("source_file") != "" && params.Get("source_code") == "" {
			params.Set("source_code", "_file_")
		}
	}
	if cmd.Service == "problem" && cmd.Action == "upload" {
		if params.Get("problem_file") != "" && params.Get("problem_json") == "" {
			params.Set("problem_json", "_file_")
		}
	}
}

func (s *Session) promptMissing(reader *bufio.Reader, cmd *command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Has(field.Name) && params.Get(field.Name) != "" && params.Get(field.Name) != "_file_" {
			continue
		}
		if params.Get(field.Name) == "_file_" {
			continue
		}
		value, err := s.promptValue(reader, field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(reader *bufio.Reader, prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

// rememberExamCode latches the code from a successful exam create onto the
// session so follow-up commands target the new exam.
func (s *Session) rememberExamCode(cmd command.Command, body []byte) {
	if cmd.Service != "exam" || cmd.Action != "create" {
		return
	}
	type examData struct {
		Code string `json:"code"`
	}
	type respEnvelope struct {
		Code int      `json:"code"`
		Data examData `json:"data"`
	}
	var resp respEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	if resp.Data.Code == "" {
		return
	}
	s.session.ExamCode = resp.Data.Code
	_ = state.Save(s.statePath, *s.session)
	s.printLine("session exam set to %s", resp.Data.Code)
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | use <code> [name] | set base|timeout | show session|config")
	s.printLine("examples:")
	s.printLine("  exam create title=\"Algorithms Final\" host=alice duration=60 max=30")
	s.printLine("  problem upload problem_file=./problem.json")
	s.printLine("  exam start")
	s.printLine("  leaderboard get")
	s.printLine("  submit create name=bob lang=python source_file=./solution.py")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}

func displayOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
