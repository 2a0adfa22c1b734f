// Package respond writes AI responses back into documents inline, as
// markdown blockquotes with attribution, immediately after the list
// item that was flagged.
package respond

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/markdown"
	"github.com/clyqra/anthra/internal/models"
	"github.com/clyqra/anthra/internal/store"
)

// RoutingInfo carries the routing decision attached to a reply.
type RoutingInfo struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Input identifies the document, the flagged item, and the reply.
type Input struct {
	ArtifactID  int64        `json:"artifact_id"`
	Filename    string       `json:"filename"`
	ItemText    string       `json:"item_text"`
	AIModel     string       `json:"ai_model"`
	Response    string       `json:"response"`
	Section     string       `json:"section,omitempty"`
	RoutingInfo *RoutingInfo `json:"routing_info,omitempty"`
}

// Result reports where the reply block was spliced in.
type Result struct {
	Success        bool `json:"success"`
	InsertedAtLine int  `json:"inserted_at_line"`
}

// Writer splices formatted replies into stored documents. Writes to
// the same document are serialized through a per-document lock: the
// insertion is a read-modify-write of the whole content blob, and
// concurrent unserialized writes would silently drop each other.
type Writer struct {
	store store.Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex // keyed by document ID
}

// NewWriter creates a Writer. now may be nil for wall-clock time.
func NewWriter(s store.Store, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{store: s, now: now, locks: make(map[int64]*sync.Mutex)}
}

func (w *Writer) lockFor(documentID int64) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		w.locks[documentID] = l
	}
	return l
}

// WriteResponse formats the reply, locates the flagged item in the
// current document content, splices the blockquote after it (skipping
// any earlier reply blocks), persists the result, and appends an audit
// record. Calling twice for the same item stacks two reply blocks in
// call order; replies are logged, never merged.
func (w *Writer) WriteResponse(in Input) (*Result, error) {
	document, err := w.store.Document(in.ArtifactID, in.Filename)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperr.NotFound("Document %q not found in artifact \"%d\"", in.Filename, in.ArtifactID)
	}

	lock := w.lockFor(document.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so stacked replies see each other.
	document, err = w.store.Document(in.ArtifactID, in.Filename)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperr.NotFound("Document %q not found in artifact \"%d\"", in.Filename, in.ArtifactID)
	}

	formatted := w.formatResponse(in.AIModel, in.Response, in.RoutingInfo)

	insertAfter, found := findInsertionPoint(document.Content, in.ItemText)
	if !found {
		return nil, apperr.Invalid("Could not find flagged item in document. Item text: \"%s...\"", truncate(in.ItemText, 50))
	}

	lines := markdown.Split(document.Content)
	var out []string
	out = append(out, lines[:insertAfter+1]...)
	out = append(out, "")
	out = append(out, markdown.Split(formatted)...)
	out = append(out, "")
	out = append(out, lines[insertAfter+1:]...)

	updated := strings.Join(out, "\n")
	if _, err := w.store.UpdateDocument(in.ArtifactID, in.Filename, &updated, nil); err != nil {
		return nil, err
	}

	interaction := models.AIInteraction{
		DocumentID:       document.ID,
		Section:          in.Section,
		ItemText:         in.ItemText,
		AIModel:          in.AIModel,
		QuerySent:        in.ItemText,
		ResponseReceived: in.Response,
	}
	if in.RoutingInfo != nil {
		interaction.RoutingConfidence = in.RoutingInfo.Confidence
		interaction.RoutingReason = in.RoutingInfo.Reason
	}
	if _, err := w.store.CreateAIInteraction(interaction); err != nil {
		return nil, err
	}

	return &Result{Success: true, InsertedAtLine: insertAfter + 2}, nil
}

// formatResponse renders the reply blockquote: an attribution header,
// an optional italic routing reason, a blank quoted line, then the
// response with every line prefixed "> ". Code fence markers stay
// unprefixed so fenced blocks render intact.
func (w *Writer) formatResponse(aiModel, response string, info *RoutingInfo) string {
	timestamp := w.now().Format("01/02/2006, 03:04 PM")

	var b strings.Builder
	fmt.Fprintf(&b, "> **AI (%s, %s):**\n", displayName(aiModel), timestamp)
	if info != nil && info.Reason != "" {
		fmt.Fprintf(&b, "> *%s*\n", info.Reason)
	}
	b.WriteString(">\n")

	quoted := make([]string, 0, 8)
	for _, line := range strings.Split(response, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			quoted = append(quoted, ">")
		case strings.HasPrefix(strings.TrimSpace(line), "```"):
			quoted = append(quoted, line)
		default:
			quoted = append(quoted, "> "+line)
		}
	}
	b.WriteString(strings.Join(quoted, "\n"))

	return b.String()
}

func displayName(model string) string {
	switch model {
	case "cursor":
		return "Cursor"
	case "claude":
		return "Claude"
	case "local":
		return "Local AI"
	default:
		return model
	}
}

// findInsertionPoint locates the flagged item by its first line and
// returns the 0-indexed line after which the reply belongs: the end of
// the item, advanced past any reply block already sitting there.
func findInsertionPoint(content, itemText string) (int, bool) {
	lines := markdown.Split(content)
	firstItemLine := strings.TrimSpace(strings.SplitN(itemText, "\n", 2)[0])

	for i, line := range lines {
		if !strings.Contains(line, firstItemLine) {
			continue
		}

		itemEnd := markdown.ItemEnd(lines, i)

		insertAfter := itemEnd
		for j := itemEnd + 1; j < len(lines); j++ {
			line := strings.TrimSpace(lines[j])
			if strings.HasPrefix(line, "> **AI (") {
				// Skip the whole existing reply block so stacked
				// replies stay in chronological order.
				for j < len(lines) && (strings.HasPrefix(strings.TrimSpace(lines[j]), ">") || strings.TrimSpace(lines[j]) == "") {
					j++
				}
				insertAfter = j - 1
				break
			}
			if line != "" && !strings.HasPrefix(line, ">") {
				break
			}
			insertAfter = j
		}

		return insertAfter, true
	}

	return len(lines), false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
