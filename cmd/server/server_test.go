package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/BatchDB"
	"github.com/nickyhof/BatchDB/core"
)

func newTestInstance(t *testing.T) *BatchDB.Instance {
	t.Helper()
	ctx := context.Background()
	instance, err := BatchDB.Open(ctx, BatchDB.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Shutdown(ctx) })
	return instance
}

func setupTestServer(t *testing.T) (*Server, func()) {
	server := NewServer(newTestInstance(t))
	if err := server.Start(":0"); err != nil { // :0 picks a free port
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
	}
}

func request(t *testing.T, action string, args any) string {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("Failed to encode args: %v", err)
	}
	line, err := json.Marshal(Request{Action: action, Args: data})
	if err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}
	return string(line)
}

func batchRequest(t *testing.T, name string, statements ...core.Statement) string {
	t.Helper()
	var args BatchArgs
	args.DBArgs.DBName = name
	args.Executes = statements
	return request(t, ActionExecuteSqlBatch, args)
}

// roundTrip writes one line and reads one response line.
func roundTrip(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) Response {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}

	reply, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(reply), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return resp
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendRequest(t *testing.T, addr, line string) Response {
	conn, reader := dial(t, addr)
	return roundTrip(t, conn, reader, line)
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if server.TLSEnabled() {
		t.Error("Expected TLS to be disabled")
	}
}

func TestServerOpen(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendRequest(t, server.Addr(), request(t, ActionOpen, OpenArgs{Name: "app.db"}))
	if !resp.Success {
		t.Fatalf("Open failed: %s", resp.Error)
	}
	if resp.Type != ActionOpen {
		t.Errorf("Expected open type, got: %s", resp.Type)
	}

	resp = sendRequest(t, server.Addr(), request(t, ActionOpen, OpenArgs{Name: "app.db"}))
	if resp.Success {
		t.Fatal("Expected second open to fail")
	}
	if resp.Error != "database already open for db name: app.db" {
		t.Errorf("Unexpected error: %s", resp.Error)
	}
}

func TestServerExecuteBatch(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn, reader := dial(t, server.Addr())
	if resp := roundTrip(t, conn, reader, request(t, ActionOpen, OpenArgs{Name: "app.db"})); !resp.Success {
		t.Fatalf("Open failed: %s", resp.Error)
	}

	resp := roundTrip(t, conn, reader, batchRequest(t, "app.db",
		core.NewStatement("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"),
		core.NewStatement("INSERT INTO t VALUES (?, ?)", 1, "Alice"),
		core.NewStatement("INSERT INTO t VALUES (?, ?)", 1, "Bob"),
		core.NewStatement("SELECT id, name FROM t"),
	))
	if !resp.Success {
		t.Fatalf("Batch failed: %s", resp.Error)
	}

	var outcomes []core.Outcome
	if err := json.Unmarshal(resp.Result, &outcomes); err != nil {
		t.Fatalf("Failed to parse outcomes: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("Expected 4 outcomes, got %d", len(outcomes))
	}
	if !outcomes[1].IsSuccess() {
		t.Errorf("Expected insert to succeed: %s", outcomes[1])
	}
	if outcomes[2].IsSuccess() || outcomes[2].Failure.Code != core.ConstraintErr {
		t.Errorf("Expected constraint failure, got: %s", outcomes[2])
	}
	if !strings.HasPrefix(outcomes[2].Failure.Message, "constraint failure: ") {
		t.Errorf("Unexpected message: %s", outcomes[2].Failure.Message)
	}
	if len(outcomes[3].Result.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(outcomes[3].Result.Rows))
	}
	if name, _ := outcomes[3].Result.Rows[0].Get("name"); name != core.Text("Alice") {
		t.Errorf("Expected Alice, got %v", name)
	}
}

func TestServerMissingExecutes(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendRequest(t, server.Addr(), `{"action":"executeSqlBatch","args":{"dbargs":{"dbname":"app.db"}}}`)
	if resp.Success {
		t.Fatal("Expected failure")
	}
	if resp.Error != "missing executes list" {
		t.Errorf("Unexpected error: %s", resp.Error)
	}
}

func TestServerBatchOnClosedDatabase(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendRequest(t, server.Addr(), batchRequest(t, "nothing.db", core.NewStatement("SELECT 1")))
	if resp.Success {
		t.Fatal("Expected failure")
	}
	if resp.Error != "database not open" {
		t.Errorf("Unexpected error: %s", resp.Error)
	}
}

func TestServerCloseAndDelete(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn, reader := dial(t, server.Addr())
	steps := []string{
		request(t, ActionOpen, OpenArgs{Name: "app.db"}),
		request(t, ActionClose, PathArgs{Path: "app.db"}),
		request(t, ActionClose, PathArgs{Path: "app.db"}),
		request(t, ActionOpen, OpenArgs{Name: "app.db"}),
		request(t, ActionDelete, PathArgs{Path: "app.db"}),
	}
	for i, step := range steps {
		if resp := roundTrip(t, conn, reader, step); !resp.Success {
			t.Fatalf("Step %d failed: %s", i, resp.Error)
		}
	}
	if names := server.instance.Names(); len(names) != 0 {
		t.Errorf("Expected no open databases, got %v", names)
	}
}

func TestServerEcho(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendRequest(t, server.Addr(), request(t, ActionEchoStringValue, EchoArgs{Value: "test-string"}))
	if !resp.Success {
		t.Fatalf("Echo failed: %s", resp.Error)
	}
	if string(resp.Result) != `"test-string"` {
		t.Errorf("Unexpected result: %s", resp.Result)
	}
}

func TestServerInvalidRequest(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendRequest(t, server.Addr(), "SELECT 1")
	if resp.Success {
		t.Error("Expected failure for non-JSON line")
	}

	resp = sendRequest(t, server.Addr(), `{"action":"drop"}`)
	if resp.Success {
		t.Error("Expected failure for unknown action")
	}
	if !strings.Contains(resp.Error, "unknown action") {
		t.Errorf("Unexpected error: %s", resp.Error)
	}
}

func TestServerPersistentConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn, reader := dial(t, server.Addr())
	for i := 0; i < 5; i++ {
		resp := roundTrip(t, conn, reader, request(t, ActionEchoStringValue, EchoArgs{Value: "ping"}))
		if !resp.Success {
			t.Fatalf("Request %d failed: %s", i, resp.Error)
		}
	}

	if _, err := conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	if _, err := reader.ReadString('\n'); err == nil {
		t.Error("Expected connection to close after quit")
	}
}

// setupAuthTestServer creates a server with authentication enabled
func setupAuthTestServer(t *testing.T, secret string) (*Server, func()) {
	authConfig := &AuthConfig{
		Enabled:   true,
		JWTSecret: secret,
	}

	server := NewServerWithAuth(newTestInstance(t), authConfig)
	if err := server.Start(":0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
	}
}

func TestAuthRequired(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, "test-secret")
	defer cleanup()

	resp := sendRequest(t, server.Addr(), request(t, ActionOpen, OpenArgs{Name: "app.db"}))
	if resp.Success {
		t.Error("Expected failure when not authenticated")
	}
	if !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected 'authentication required' error, got: %s", resp.Error)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, cleanup := setupAuthTestServer(t, secret)
	defer cleanup()

	token := createTestJWT(t, secret, "Test User", "test@example.com")
	conn, reader := dial(t, server.Addr())

	resp := roundTrip(t, conn, reader, "AUTH JWT "+token)
	if !resp.Success {
		t.Errorf("Auth failed: %s", resp.Error)
	}
	if resp.Type != "auth" {
		t.Errorf("Expected 'auth' type, got: %s", resp.Type)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Result, &authResp); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !authResp.Authenticated {
		t.Error("Expected authenticated to be true")
	}
	if authResp.Identity != "Test User <test@example.com>" {
		t.Errorf("Expected identity 'Test User <test@example.com>', got: %s", authResp.Identity)
	}
	if authResp.ExpiresIn <= 0 {
		t.Errorf("Expected positive expiry, got: %d", authResp.ExpiresIn)
	}

	// Now requests should work
	resp = roundTrip(t, conn, reader, request(t, ActionOpen, OpenArgs{Name: "authtest.db"}))
	if !resp.Success {
		t.Errorf("Request after auth failed: %s", resp.Error)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, "test-secret")
	defer cleanup()

	wrongToken := createTestJWT(t, "wrong-secret", "Test User", "test@example.com")
	conn, reader := dial(t, server.Addr())

	resp := roundTrip(t, conn, reader, "AUTH JWT "+wrongToken)
	if resp.Success {
		t.Error("Expected auth to fail with wrong secret")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = roundTrip(t, conn, reader, request(t, ActionEchoStringValue, EchoArgs{Value: "x"}))
	if resp.Success {
		t.Error("Expected request to fail after rejected auth")
	}
}

func TestParseAuthCommand(t *testing.T) {
	authType, token, err := parseAuthCommand("auth jwt abc.def.ghi")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if authType != "JWT" || token != "abc.def.ghi" {
		t.Errorf("Unexpected parse: %s %s", authType, token)
	}

	if _, _, err := parseAuthCommand("AUTH JWT"); err == nil {
		t.Error("Expected error for missing token")
	}
	if _, _, err := parseAuthCommand("AUTH BASIC user:pass"); err == nil {
		t.Error("Expected error for unsupported type")
	}
}

func TestValidateJWTIssuerAndAudience(t *testing.T) {
	config := &AuthConfig{Enabled: true, JWTSecret: "s", Issuer: "batchdb", Audience: "clients"}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "A",
		"iss":  "batchdb",
		"aud":  "clients",
	})
	signed, err := token.SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	if result := config.validateJWT(signed); result.err != nil {
		t.Errorf("Expected valid token: %v", result.err)
	}

	config.Issuer = "someone-else"
	if result := config.validateJWT(signed); result.err == nil {
		t.Error("Expected issuer mismatch")
	}

	noIdentity, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("s"))
	config.Issuer = ""
	if result := config.validateJWT(noIdentity); result.err == nil {
		t.Error("Expected missing identity claims error")
	}
}

// createTestJWT creates a JWT token for testing
func createTestJWT(t *testing.T, secret, name, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

// === TLS Tests ===

// setupTLSTestServer creates a server with TLS enabled using test certificates
func setupTLSTestServer(t *testing.T) (*Server, string, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile := tmpDir + "/cert.pem"
	keyFile := tmpDir + "/key.pem"

	generateTestCertificate(t, certFile, keyFile)

	server := NewServer(newTestInstance(t))
	if err := server.StartTLS(":0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}

	return server, certFile, keyFile, func() {
		server.Stop()
	}
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certOut, err := os.Create(certFile)
	if err != nil {
		t.Fatalf("Failed to create cert file: %v", err)
	}
	pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	certOut.Close()

	keyOut, err := os.Create(keyFile)
	if err != nil {
		t.Fatalf("Failed to create key file: %v", err)
	}
	pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	keyOut.Close()
}

func TestTLSServerStartStop(t *testing.T) {
	server, _, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if !server.TLSEnabled() {
		t.Error("Expected TLS to be enabled")
	}
}

func TestTLSServerConnection(t *testing.T) {
	server, certFile, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	certPool := x509.NewCertPool()
	certData, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool.AppendCertsFromPEM(certData)

	tlsConfig := &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	resp := roundTrip(t, conn, bufio.NewReader(conn), request(t, ActionOpen, OpenArgs{Name: "tlstest.db"}))
	if !resp.Success {
		t.Errorf("Request failed: %s", resp.Error)
	}
	if resp.Type != ActionOpen {
		t.Errorf("Expected open type, got: %s", resp.Type)
	}
}

func TestTLSServerInvalidCert(t *testing.T) {
	server, _, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	// System roots do not include the self-signed test certificate
	tlsConfig := &tls.Config{
		ServerName: "localhost",
	}

	_, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err == nil {
		t.Error("Expected TLS connection to fail with invalid certificate")
	}
}
