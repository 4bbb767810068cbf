package main

import (
	"context"
	"encoding/json"

	"github.com/deso-protocol/go-deadlock"
	"github.com/nickyhof/BatchDB"
	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/runner"
)

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// batchRequest is the argument of batchdb_execute.
type batchRequest struct {
	DBArgs struct {
		DBName string `json:"dbname"`
	} `json:"dbargs"`
	Executes []core.Statement `json:"executes"`
}

type instances struct {
	mtx  deadlock.Mutex
	next int
	byID map[int]*BatchDB.Instance
}

var bridge = &instances{next: 1, byID: make(map[int]*BatchDB.Instance)}

func (b *instances) open(config BatchDB.Config) (int, error) {
	instance, err := BatchDB.Open(context.Background(), config)
	if err != nil {
		return -1, err
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	id := b.next
	b.next++
	b.byID[id] = instance
	return id, nil
}

func (b *instances) get(id int) (*BatchDB.Instance, bool) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	instance, ok := b.byID[id]
	return instance, ok
}

// shutdown closes every database of the instance and forgets it.
func (b *instances) shutdown(id int) error {
	b.mtx.Lock()
	instance, ok := b.byID[id]
	delete(b.byID, id)
	b.mtx.Unlock()

	if !ok {
		return nil
	}
	return instance.Shutdown(context.Background())
}

func (b *instances) openDatabase(id int, name, key string) []byte {
	instance, ok := b.get(id)
	if !ok {
		return errorResponse("open", "invalid handle")
	}
	return replyResponse("open", instance.OpenSync(name, runner.OpenOptions{Key: key}), nil)
}

func (b *instances) closeDatabase(id int, name string) []byte {
	instance, ok := b.get(id)
	if !ok {
		return errorResponse("close", "invalid handle")
	}
	return replyResponse("close", instance.CloseSync(name), nil)
}

func (b *instances) deleteDatabase(id int, name string) []byte {
	instance, ok := b.get(id)
	if !ok {
		return errorResponse("delete", "invalid handle")
	}
	return replyResponse("delete", instance.DeleteSync(name), nil)
}

func (b *instances) execute(id int, request []byte) []byte {
	instance, ok := b.get(id)
	if !ok {
		return errorResponse("executeSqlBatch", "invalid handle")
	}

	var req batchRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return errorResponse("executeSqlBatch", "invalid request: "+err.Error())
	}
	if len(req.Executes) == 0 {
		return errorResponse("executeSqlBatch", "missing executes list")
	}

	outcomes, err := instance.SubmitSync(req.DBArgs.DBName, req.Executes)
	return replyResponse("executeSqlBatch", err, outcomes)
}

func errorResponse(action, msg string) []byte {
	data, _ := json.Marshal(Response{Success: false, Type: action, Error: msg})
	return data
}

func replyResponse(action string, err error, result any) []byte {
	if err != nil {
		return errorResponse(action, err.Error())
	}
	resp := Response{Success: true, Type: action}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errorResponse(action, err.Error())
		}
		resp.Result = data
	}
	data, _ := json.Marshal(resp)
	return data
}
