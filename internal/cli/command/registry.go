package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "exam",
			Action:       "create",
			Method:       "POST",
			PathTemplate: "/api/v1/exams",
			Fields: []Field{
				{Name: "title", Prompt: "title", Type: FieldString, Required: true},
				{Name: "host_name", Aliases: []string{"host"}, Prompt: "host_name", Type: FieldString, Required: true},
				{Name: "duration_minutes", Aliases: []string{"duration"}, Prompt: "duration_minutes", Type: FieldInt, Required: true},
				{Name: "max_participants", Aliases: []string{"max"}, Prompt: "max_participants", Type: FieldInt, Required: true},
			},
		},
		{
			Service:      "exam",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/exams/:code?view=host",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "exam",
			Action:       "start",
			Method:       "POST",
			PathTemplate: "/api/v1/exams/:code/start",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "exam",
			Action:       "stop",
			Method:       "POST",
			PathTemplate: "/api/v1/exams/:code/stop",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "exam",
			Action:       "join",
			Method:       "POST",
			PathTemplate: "/api/v1/exams/:code/join",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
				{Name: "name", Prompt: "participant name", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "upload",
			Method:       "POST",
			PathTemplate: "/api/v1/exams/:code/problem",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
				{Name: "problem_json", Prompt: "problem_json (JSON)", Type: FieldJSON, Required: true},
				{Name: "problem_file", Prompt: "problem_file", Type: FieldFile, Required: false},
			},
		},
		{
			Service:      "submit",
			Action:       "create",
			Method:       "POST",
			PathTemplate: "/api/v1/exams/:code/submissions",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
				{Name: "name", Prompt: "participant name", Type: FieldString, Required: true},
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "source_code", Prompt: "source_code", Type: FieldString, Required: true},
				{Name: "source_file", Prompt: "source_file", Type: FieldFile, Required: false},
			},
		},
		{
			Service:      "leaderboard",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/exams/:code/leaderboard",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "integrity",
			Action:       "state",
			Method:       "GET",
			PathTemplate: "/api/v1/exams/:code/integrity/:name",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
				{Name: "name", Prompt: "participant name", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "integrity",
			Action:       "policy",
			Method:       "GET",
			PathTemplate: "/api/v1/exams/:code/integrity/policy",
			Fields: []Field{
				{Name: "code", Prompt: "exam_code", Type: FieldString, Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method: cmd.Method,
		Path:   path,
		Body:   body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	for _, key := range []string{"code", "name"} {
		placeholder := ":" + key
		if strings.Contains(path, placeholder) {
			value := params.Get(key)
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", key)
			}
			path = strings.ReplaceAll(path, placeholder, value)
		}
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Service {
	case "exam":
		switch cmd.Action {
		case "create":
			duration, err := ParseInt(params.Get("duration_minutes"))
			if err != nil {
				return nil, fmt.Errorf("invalid duration_minutes: %w", err)
			}
			max, err := ParseInt(params.Get("max_participants"))
			if err != nil {
				return nil, fmt.Errorf("invalid max_participants: %w", err)
			}
			return map[string]interface{}{
				"title":            params.Get("title"),
				"host_name":        params.Get("host_name"),
				"duration_minutes": duration,
				"max_participants": max,
			}, nil
		case "join":
			return map[string]string{"name": params.Get("name")}, nil
		}
	case "problem":
		if cmd.Action == "upload" {
			raw, err := jsonOrFile(params, "problem_json", "problem_file")
			if err != nil {
				return nil, err
			}
			return raw, nil
		}
	case "submit":
		if cmd.Action == "create" {
			return buildSubmitCreatePayload(params)
		}
	}
	return nil, nil
}

func buildSubmitCreatePayload(params Params) (interface{}, error) {
	sourceCode := params.Get("source_code")
	if (sourceCode == "" || sourceCode == "_file_") && params.Get("source_file") != "" {
		data, err := ReadFile(params.Get("source_file"))
		if err != nil {
			return nil, err
		}
		sourceCode = data
	}
	if sourceCode == "" {
		return nil, fmt.Errorf("source_code is required")
	}
	return map[string]interface{}{
		"name":        params.Get("name"),
		"language":    params.Get("language"),
		"source_code": sourceCode,
	}, nil
}

func jsonOrFile(params Params, key, fileKey string) (json.RawMessage, error) {
	value := params.Get(key)
	if (value == "" || value == "_file_") && params.Get(fileKey) != "" {
		data, err := ReadFile(params.Get(fileKey))
		if err != nil {
			return nil, err
		}
		value = data
	}
	if value == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	return ParseJSON(value)
}
