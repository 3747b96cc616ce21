package duel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Wire operations between Sandbox and Serve.
const (
	opCreate        = "create"
	opAddCard       = "add_card"
	opStart         = "start"
	opProcess       = "process"
	opGetMessages   = "get_messages"
	opSetResponse   = "set_response"
	opQueryCount    = "query_count"
	opQuery         = "query"
	opQueryLocation = "query_location"
	opQueryField    = "query_field"
	opDestroy       = "destroy"
)

type request struct {
	Op      string     `json:"op"`
	Handle  Handle     `json:"handle,omitempty"`
	Options *Options   `json:"options,omitempty"`
	Card    *CardInfo  `json:"card,omitempty"`
	Query   *QueryInfo `json:"query,omitempty"`
	Team    uint8      `json:"team,omitempty"`
	Loc     uint32     `json:"loc,omitempty"`
	Data    []byte     `json:"data,omitempty"`
}

type response struct {
	Handle Handle `json:"handle,omitempty"`
	Status Status `json:"status"`
	Count  int    `json:"count,omitempty"`
	Data   []byte `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

type SandboxConfig struct {
	Path string
	Args []string
	Env  []string
}

// Sandbox runs an engine host in a child process and talks to it over
// newline-delimited JSON on stdin/stdout. A crash or timeout only breaks this
// sandbox; every later call returns ErrSandboxClosed.
type Sandbox struct {
	logger *zap.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder

	mu     sync.Mutex
	broken bool
	closed bool
}

func StartSandbox(cfg SandboxConfig, logger *zap.Logger) (*Sandbox, error) {
	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Stderr = zap.NewStdLog(logger).Writer()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sandbox stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sandbox stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sandbox %s: %w", cfg.Path, err)
	}
	logger.Debug("sandbox started", zap.Int("pid", cmd.Process.Pid))
	return &Sandbox{
		logger: logger,
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(stdout),
	}, nil
}

// SandboxProvider starts a fresh sandbox for every duel.
func SandboxProvider(cfg SandboxConfig, logger *zap.Logger) Provider {
	return ProviderFunc(func(ctx context.Context) (Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return StartSandbox(cfg, logger.Named("sandbox"))
	})
}

func (s *Sandbox) call(ctx context.Context, req request) (response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken || s.closed {
		return response{}, ErrSandboxClosed
	}

	type result struct {
		resp response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		if r.err = s.enc.Encode(req); r.err == nil {
			r.err = s.dec.Decode(&r.resp)
		}
		done <- r
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.breakLocked()
			return response{}, fmt.Errorf("sandbox %s: %w", req.Op, r.err)
		}
		if r.resp.Error != "" {
			return response{}, fmt.Errorf("%w: %s: %s", ErrEngineFailure, req.Op, r.resp.Error)
		}
		return r.resp, nil
	case <-ctx.Done():
		s.logger.Warn("sandbox call abandoned", zap.String("op", req.Op), zap.Error(ctx.Err()))
		s.breakLocked()
		return response{}, ctx.Err()
	}
}

func (s *Sandbox) breakLocked() {
	if s.broken {
		return
	}
	s.broken = true
	if err := s.cmd.Process.Kill(); err != nil {
		s.logger.Debug("sandbox kill", zap.Error(err))
	}
}

func (s *Sandbox) Create(ctx context.Context, opts Options) (Handle, error) {
	resp, err := s.call(ctx, request{Op: opCreate, Options: &opts})
	return resp.Handle, err
}

func (s *Sandbox) AddCard(ctx context.Context, h Handle, info CardInfo) error {
	_, err := s.call(ctx, request{Op: opAddCard, Handle: h, Card: &info})
	return err
}

func (s *Sandbox) Start(ctx context.Context, h Handle) error {
	_, err := s.call(ctx, request{Op: opStart, Handle: h})
	return err
}

func (s *Sandbox) Process(ctx context.Context, h Handle) (Status, error) {
	resp, err := s.call(ctx, request{Op: opProcess, Handle: h})
	return resp.Status, err
}

func (s *Sandbox) GetMessages(ctx context.Context, h Handle) ([]byte, error) {
	resp, err := s.call(ctx, request{Op: opGetMessages, Handle: h})
	return resp.Data, err
}

func (s *Sandbox) SetResponse(ctx context.Context, h Handle, data []byte) error {
	_, err := s.call(ctx, request{Op: opSetResponse, Handle: h, Data: data})
	return err
}

func (s *Sandbox) QueryCount(ctx context.Context, h Handle, team uint8, loc uint32) (int, error) {
	resp, err := s.call(ctx, request{Op: opQueryCount, Handle: h, Team: team, Loc: loc})
	return resp.Count, err
}

func (s *Sandbox) Query(ctx context.Context, h Handle, info QueryInfo) ([]byte, error) {
	resp, err := s.call(ctx, request{Op: opQuery, Handle: h, Query: &info})
	return resp.Data, err
}

func (s *Sandbox) QueryLocation(ctx context.Context, h Handle, info QueryInfo) ([]byte, error) {
	resp, err := s.call(ctx, request{Op: opQueryLocation, Handle: h, Query: &info})
	return resp.Data, err
}

func (s *Sandbox) QueryField(ctx context.Context, h Handle) ([]byte, error) {
	resp, err := s.call(ctx, request{Op: opQueryField, Handle: h})
	return resp.Data, err
}

func (s *Sandbox) Destroy(ctx context.Context, h Handle) error {
	_, err := s.call(ctx, request{Op: opDestroy, Handle: h})
	return err
}

// Close ends the child process. Closing stdin lets a healthy host exit on EOF.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.stdin.Close()
	waitErr := s.cmd.Wait()
	if s.broken {
		// killed on purpose, the exit status says nothing new
		waitErr = nil
	}
	return multierr.Append(err, waitErr)
}
