// Package main provides a TCP and HTTP server for BatchDB.
package main

import (
	"encoding/json"

	"github.com/nickyhof/BatchDB/core"
)

// Actions accepted by the server.
const (
	ActionOpen                      = "open"
	ActionClose                     = "close"
	ActionDelete                    = "delete"
	ActionExecuteSqlBatch           = "executeSqlBatch"
	ActionBackgroundExecuteSqlBatch = "backgroundExecuteSqlBatch"
	ActionEchoStringValue           = "echoStringValue"
)

// Request is one action sent by a client, one JSON object per line.
type Request struct {
	Action string          `json:"action"`
	Args   json.RawMessage `json:"args"`
}

// Response represents the server's answer to a request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // the request action, or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// OpenArgs are the arguments of "open".
type OpenArgs struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

// PathArgs are the arguments of "close" and "delete".
type PathArgs struct {
	Path string `json:"path"`
}

// BatchArgs are the arguments of "executeSqlBatch".
type BatchArgs struct {
	DBArgs struct {
		DBName string `json:"dbname"`
	} `json:"dbargs"`
	Executes []core.Statement `json:"executes"`
}

// EchoArgs are the arguments of "echoStringValue".
type EchoArgs struct {
	Value string `json:"value"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}
