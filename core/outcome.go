package core

import (
	"encoding/json"
	"fmt"
)

// ErrorCode follows the WebSQL SQLException numbering expected by callers.
type ErrorCode int

const (
	UnknownErr    ErrorCode = 0
	DatabaseErr   ErrorCode = 1
	VersionErr    ErrorCode = 2
	TooLargeErr   ErrorCode = 3
	QuotaErr      ErrorCode = 4
	SyntaxErr     ErrorCode = 5
	ConstraintErr ErrorCode = 6
	TimeoutErr    ErrorCode = 7
)

type OutcomeType string

const (
	SuccessOutcome OutcomeType = "success"
	ErrorOutcome   OutcomeType = "error"
)

// Result is the payload of a successful statement. Rows is nil for
// statements that do not produce a row set and non-nil (possibly empty)
// for queries.
type Result struct {
	RowsAffected *int64
	InsertID     *int64
	Rows         []Row
}

type resultJSON struct {
	RowsAffected *int64 `json:"rowsAffected,omitempty"`
	InsertID     *int64 `json:"insertId,omitempty"`
	Rows         *[]Row `json:"rows,omitempty"`
}

func (result Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		RowsAffected: result.RowsAffected,
		InsertID:     result.InsertID,
	}
	if result.Rows != nil {
		out.Rows = &result.Rows
	}
	return json.Marshal(out)
}

func (result *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	result.RowsAffected = in.RowsAffected
	result.InsertID = in.InsertID
	result.Rows = nil
	if in.Rows != nil {
		result.Rows = *in.Rows
		if result.Rows == nil {
			result.Rows = []Row{}
		}
	}
	return nil
}

type Failure struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

func (failure Failure) Error() string {
	return failure.Message
}

// Outcome is the immutable record of one statement's execution.
type Outcome struct {
	Type    OutcomeType
	Result  Result
	Failure Failure
}

func Succeeded(result Result) Outcome {
	return Outcome{Type: SuccessOutcome, Result: result}
}

func Failed(message string, code ErrorCode) Outcome {
	return Outcome{Type: ErrorOutcome, Failure: Failure{Message: message, Code: code}}
}

// RowsAffected builds a success carrying only a rows-affected count.
func RowsAffected(n int64) Outcome {
	return Succeeded(Result{RowsAffected: &n})
}

// Inserted builds the success of an insert that produced a row id.
func Inserted(id int64) Outcome {
	one := int64(1)
	return Succeeded(Result{RowsAffected: &one, InsertID: &id})
}

// Rows builds the success of a query. A nil slice is reported as empty.
func Rows(rows []Row) Outcome {
	if rows == nil {
		rows = []Row{}
	}
	return Succeeded(Result{Rows: rows})
}

func (outcome Outcome) IsSuccess() bool {
	return outcome.Type == SuccessOutcome
}

func (outcome Outcome) String() string {
	if outcome.IsSuccess() {
		data, _ := json.Marshal(outcome.Result)
		return fmt.Sprintf("success %s", data)
	}
	return fmt.Sprintf("error(%d) %s", outcome.Failure.Code, outcome.Failure.Message)
}

type outcomeJSON struct {
	Type   OutcomeType     `json:"type"`
	Result json.RawMessage `json:"result"`
}

func (outcome Outcome) MarshalJSON() ([]byte, error) {
	var (
		result []byte
		err    error
	)
	if outcome.IsSuccess() {
		result, err = json.Marshal(outcome.Result)
	} else {
		result, err = json.Marshal(outcome.Failure)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(outcomeJSON{Type: outcome.Type, Result: result})
}

func (outcome *Outcome) UnmarshalJSON(data []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Type {
	case SuccessOutcome:
		var result Result
		if err := json.Unmarshal(in.Result, &result); err != nil {
			return err
		}
		*outcome = Succeeded(result)
	case ErrorOutcome:
		var failure Failure
		if err := json.Unmarshal(in.Result, &failure); err != nil {
			return err
		}
		*outcome = Outcome{Type: ErrorOutcome, Failure: failure}
	default:
		return fmt.Errorf("unknown outcome type: %q", in.Type)
	}
	return nil
}
