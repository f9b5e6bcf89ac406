package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/copyleftdev/nettrain/internal/job"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string { return e.message }

func invalidParams(err error) error {
	return &rpcError{code: codeInvalidParams, message: err.Error()}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "training.start":
		result, err = s.rpcStart(request.Params)
	case "training.status":
		result, err = s.rpcStatus(request.Params)
	case "training.cancel":
		result, err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		var re *rpcError
		if errors.As(err, &re) {
			s.respondWithError(w, re.code, re.message, request.ID)
			return
		}
		s.respondWithError(w, codeServerError, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// firstParam accepts params given either as an object or as an array whose
// first element is the object.
func firstParam(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, invalidParams(errors.New("missing required parameters"))
	}
	if raw[0] != '[' {
		return raw, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalidParams(err)
	}
	if len(list) == 0 {
		return nil, invalidParams(errors.New("missing required parameters"))
	}
	return list[0], nil
}

// rpcStart handles training.start. The parameter is a job object.
// Returns: {"job_id": "job_123", "status": "pending"}
func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	raw, err := firstParam(params)
	if err != nil {
		return nil, err
	}
	j, err := job.Parse(raw)
	if err != nil {
		return nil, invalidParams(err)
	}
	st, err := s.Start(j)
	if err != nil {
		if errors.Is(err, ErrShuttingDown) {
			return nil, err
		}
		return nil, invalidParams(err)
	}
	return startResponse(st), nil
}

func jobID(params json.RawMessage) (string, error) {
	raw, err := firstParam(params)
	if err != nil {
		return "", err
	}
	var p struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", invalidParams(err)
	}
	if p.JobID == "" {
		return "", invalidParams(errors.New("job_id is required"))
	}
	return p.JobID, nil
}

// rpcStatus handles training.status. Expected parameters: {"job_id": "job_123"}
func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	id, err := jobID(params)
	if err != nil {
		return nil, err
	}
	st, err := s.Lookup(id)
	if err != nil {
		return nil, err
	}
	return st.Snapshot(), nil
}

// rpcCancel handles training.cancel. Expected parameters: {"job_id": "job_123"}
func (s *Server) rpcCancel(params json.RawMessage) (interface{}, error) {
	id, err := jobID(params)
	if err != nil {
		return nil, err
	}
	if err := s.Cancel(id); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancellation requested"}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
