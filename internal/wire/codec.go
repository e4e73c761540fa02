package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeRequest marshals a request into a single datagram payload.
func EncodeRequest(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("encode request: payload exceeds %d bytes", MaxDatagramSize)
	}
	return data, nil
}

// DecodeRequest unmarshals a datagram payload into a request.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// EncodeResponse marshals a reply into a single datagram payload.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

// DecodeResponse unmarshals a datagram payload into a reply.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// TransferRequest formats the one-line request sent on a transfer
// connection. The wire form is the literal text "GET <filename>".
func TransferRequest(filename string) []byte {
	return []byte("GET " + filename + "\n")
}

// ParseTransferRequest extracts the filename from a transfer request line.
func ParseTransferRequest(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	verb, filename, ok := strings.Cut(line, " ")
	if !ok || verb != "GET" || filename == "" {
		return "", fmt.Errorf("malformed transfer request %q", line)
	}
	return filename, nil
}
