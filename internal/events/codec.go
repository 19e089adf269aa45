package events

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/mrlokans/offlinemirror/internal/catalog"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type downloadErrorWire struct {
	BookID string        `json:"book_id"`
	Book   *catalog.Book `json:"book,omitempty"`
	Error  string        `json:"error"`
}

// Encode serializes an event into its tagged JSON envelope.
func Encode(e Event) ([]byte, error) {
	var payload any = e
	if de, ok := e.(DownloadError); ok {
		payload = downloadErrorWire{BookID: de.BookID, Book: de.Book, Error: de.Message()}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	return json.Marshal(envelope{Type: e.Type(), Payload: raw})
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case SeriesDeleted{}.Type():
		return decodeAs[SeriesDeleted](env.Payload)
	case BookAdded{}.Type():
		return decodeAs[BookAdded](env.Payload)
	case BookChanged{}.Type():
		return decodeAs[BookChanged](env.Payload)
	case BookDeleted{}.Type():
		return decodeAs[BookDeleted](env.Payload)
	case LibraryChanged{}.Type():
		return decodeAs[LibraryChanged](env.Payload)
	case LibraryDeleted{}.Type():
		return decodeAs[LibraryDeleted](env.Payload)
	case UserDeleted{}.Type():
		return decodeAs[UserDeleted](env.Payload)
	case ServerDeleted{}.Type():
		return decodeAs[ServerDeleted](env.Payload)
	case ReadProgressChanged{}.Type():
		return decodeAs[ReadProgressChanged](env.Payload)
	case DownloadProgress{}.Type():
		return decodeAs[DownloadProgress](env.Payload)
	case DownloadCompleted{}.Type():
		return decodeAs[DownloadCompleted](env.Payload)
	case DownloadError{}.Type():
		var wire downloadErrorWire
		if err := json.Unmarshal(env.Payload, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return DownloadError{BookID: wire.BookID, Book: wire.Book, Err: errors.New(wire.Error)}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func decodeAs[T Event](payload []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Type(), err)
	}
	return e, nil
}
