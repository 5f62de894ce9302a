package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// commentWire covers both comment shapes seen on the wire: text with flat
// user_id/user_name, and content with a nested user.
type commentWire struct {
	ID         int64     `json:"id"`
	IncidentID int64     `json:"incident_id,omitempty"`
	UserID     *int64    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	User       *userRef  `json:"user,omitempty"`
	Text       string    `json:"text,omitempty"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  timestamp `json:"created_at"`
}

type commentBodyWire struct {
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

func (w commentWire) toModel() models.Comment {
	c := models.Comment{
		ID:         w.ID,
		IncidentID: w.IncidentID,
		AuthorName: w.UserName,
		Text:       w.Text,
		CreatedAt:  time.Time(w.CreatedAt),
	}
	if c.Text == "" {
		c.Text = w.Content
	}
	if w.UserID != nil {
		c.AuthorID = *w.UserID
	}
	if w.User != nil {
		if c.AuthorID == 0 {
			c.AuthorID = w.User.id()
		}
		if c.AuthorName == "" {
			c.AuthorName = w.User.Name
		}
	}
	return c
}

func DecodeComment(data []byte) (models.Comment, error) {
	var w commentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Comment{}, decodingError("comment", err)
	}
	return w.toModel(), nil
}

func DecodeComments(data []byte) ([]models.Comment, error) {
	var ws []commentWire
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, decodingError("comment list", err)
	}
	out := make([]models.Comment, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toModel())
	}
	return out, nil
}

func (c *Codec) commentWire(cm models.Comment) commentWire {
	w := commentWire{
		ID:         cm.ID,
		IncidentID: cm.IncidentID,
		CreatedAt:  timestamp(cm.CreatedAt),
	}
	author := cm.AuthorID
	if c.Vocabulary() == Spanish {
		w.Content = cm.Text
		w.User = &userRef{ID: &author, Name: cm.AuthorName, nested: true}
	} else {
		w.Text = cm.Text
		w.UserID = &author
		w.UserName = cm.AuthorName
	}
	return w
}

func (c *Codec) EncodeComment(cm models.Comment) ([]byte, error) {
	return json.Marshal(c.commentWire(cm))
}

func (c *Codec) EncodeComments(cms []models.Comment) ([]byte, error) {
	ws := make([]commentWire, 0, len(cms))
	for _, cm := range cms {
		ws = append(ws, c.commentWire(cm))
	}
	return json.Marshal(ws)
}

// EncodeCommentText renders an add-comment body: {"text"} in English,
// {"content"} in Spanish.
func (c *Codec) EncodeCommentText(text string) ([]byte, error) {
	if c.Vocabulary() == Spanish {
		return json.Marshal(commentBodyWire{Content: text})
	}
	return json.Marshal(commentBodyWire{Text: text})
}

// DecodeCommentText parses an add-comment body in either vocabulary.
func DecodeCommentText(data []byte) (string, error) {
	var w commentBodyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return "", decodingError("comment body", err)
	}
	text := w.Text
	if text == "" {
		text = w.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", decodingError("comment body", errors.New("empty text"))
	}
	return text, nil
}
