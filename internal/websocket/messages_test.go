package websocket

import (
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, msg *ClientMessage)
	}{
		{
			name:    "send message",
			payload: `{"type":"send_message","text":"你好","voice":true}`,
			check: func(t *testing.T, msg *ClientMessage) {
				if msg.Type != ClientMessageSendMessage {
					t.Errorf("Expected send_message, got %s", msg.Type)
				}
				if msg.Text != "你好" || !msg.Voice {
					t.Errorf("Unexpected fields: %+v", msg)
				}
			},
		},
		{
			name:    "open session",
			payload: `{"type":"open_session","session_id":"abc"}`,
			check: func(t *testing.T, msg *ClientMessage) {
				if msg.SessionID != "abc" {
					t.Errorf("Expected session id abc, got %s", msg.SessionID)
				}
			},
		},
		{
			name:    "open session without id",
			payload: `{"type":"open_session"}`,
			wantErr: true,
		},
		{
			name:    "missing type",
			payload: `{"text":"hi"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{"type":`,
			wantErr: true,
		},
		{
			name:    "start recording with mime type",
			payload: `{"type":"start_recording","mime_type":"audio/webm"}`,
			check: func(t *testing.T, msg *ClientMessage) {
				if msg.MIMEType != "audio/webm" {
					t.Errorf("Expected mime type audio/webm, got %s", msg.MIMEType)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseClientMessage([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, msg)
			}
		})
	}
}
