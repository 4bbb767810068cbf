package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/nickyhof/BatchDB"
	"github.com/nickyhof/BatchDB/runner"
)

// Server is a TCP server that exposes a BatchDB instance. Each line a
// client sends is one JSON Request; each gets one JSON Response line.
type Server struct {
	listener   net.Listener
	instance   *BatchDB.Instance
	authConfig *AuthConfig
	tlsEnabled bool
	httpServer *http.Server
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a new server with the given BatchDB instance.
func NewServer(instance *BatchDB.Instance) *Server {
	return &Server{
		instance: instance,
		done:     make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires AUTH before any action
// when authConfig is enabled.
func NewServerWithAuth(instance *BatchDB.Instance, authConfig *AuthConfig) *Server {
	server := NewServer(instance)
	server.authConfig = authConfig
	return server
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	glog.Infof("Server.Start: Listening on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// StartTLS is Start with TLS using the given certificate and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	glog.Infof("Server.StartTLS: Listening on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				glog.Errorf("Server.acceptLoop: Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.NewString()
	glog.V(1).Infof("Server.handleConnection: Client %s connected from %s", connID, conn.RemoteAddr())

	reader := bufio.NewReader(conn)
	state := &ConnectionState{}

	for {
		select {
		case <-s.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				glog.Errorf("Server.handleConnection: Read error from %s: %v", connID, err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle special commands
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			glog.V(1).Infof("Server.handleConnection: Client %s disconnected", connID)
			return
		}

		var response Response
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "AUTH "):
			response = s.handleAuth(line, state)
		case s.authRequired() && !state.IsAuthenticated():
			response = Response{Success: false, Error: "authentication required: send AUTH JWT <token>"}
		case state.Expired():
			response = Response{Success: false, Error: "authentication required: token expired"}
		default:
			response = s.handleLine(line)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			glog.Errorf("Server.handleConnection: Failed to encode response: %v", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			glog.Errorf("Server.handleConnection: Write error to %s: %v", connID, err)
			return
		}
	}
}

func (s *Server) handleLine(line string) Response {
	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
	}
	return s.Dispatch(req)
}

// Dispatch runs one request against the instance and waits for its reply.
func (s *Server) Dispatch(req Request) Response {
	switch req.Action {
	case ActionOpen:
		var args OpenArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(req, err)
		}
		return replyResponse(req, s.instance.OpenSync(args.Name, runner.OpenOptions{Key: args.Key}), nil)

	case ActionClose:
		var args PathArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(req, err)
		}
		return replyResponse(req, s.instance.CloseSync(args.Path), nil)

	case ActionDelete:
		var args PathArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(req, err)
		}
		return replyResponse(req, s.instance.DeleteSync(args.Path), nil)

	case ActionExecuteSqlBatch, ActionBackgroundExecuteSqlBatch:
		var args BatchArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(req, err)
		}
		if len(args.Executes) == 0 {
			return failed(req, fmt.Errorf("missing executes list"))
		}
		outcomes, err := s.instance.SubmitSync(args.DBArgs.DBName, args.Executes)
		return replyResponse(req, err, outcomes)

	case ActionEchoStringValue:
		var args EchoArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(req, err)
		}
		return replyResponse(req, nil, s.instance.Echo(args.Value))

	default:
		return failed(req, fmt.Errorf("unknown action: %q", req.Action))
	}
}

func decodeArgs(req Request, v any) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("missing args for %s", req.Action)
	}
	if err := json.Unmarshal(req.Args, v); err != nil {
		return fmt.Errorf("invalid args for %s: %w", req.Action, err)
	}
	return nil
}

func failed(req Request, err error) Response {
	return Response{Success: false, Type: req.Action, Error: err.Error()}
}

func replyResponse(req Request, err error, result any) Response {
	if err != nil {
		return failed(req, err)
	}
	resp := Response{Success: true, Type: req.Action}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return failed(req, err)
		}
		resp.Result = data
	}
	return resp
}
