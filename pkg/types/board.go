package types

import (
	"time"

	"github.com/pkg/errors"
)

// DatetimeLayout is the layout of Board.WriteDatetime (yyyy-MM-dd HH:mm:ss).
const DatetimeLayout = "2006-01-02 15:04:05"

// Length limits of the board fields, in characters. The validate tags of the
// request types below must be kept in sync.
const (
	MaxTitleLength   = 256
	MaxContentLength = 65535
	MaxEmailLength   = 256
)

var ErrNumberAlreadyAssigned = errors.New("This board already has a number")

// PostBoardRequest carries the fields of a new board post.
type PostBoardRequest struct {
	Title   string `json:"title" validate:"required,max=256"`
	Content string `json:"content" validate:"required,max=65535"`
}

// PatchBoardRequest carries the replacement title and content of a board.
type PatchBoardRequest struct {
	Title   string `json:"title" validate:"required,max=256"`
	Content string `json:"content" validate:"required,max=65535"`
}

// Board is a single discussion board post.
//
// Board does no locking, concurrent mutations of the same value must be
// serialized by the caller (see boardstore.Store.Modify).
type Board struct {
	number        int64
	title         string
	content       string
	writeDatetime string
	favoriteCount int
	commentCount  int
	viewCount     int
	writerEmail   string
}

// NewBoard creates a fresh board written by email, stamped with the current
// local time.
func NewBoard(req PostBoardRequest, email string) Board {
	return NewBoardAt(req, email, time.Now())
}

func NewBoardAt(req PostBoardRequest, email string, now time.Time) Board {
	return Board{
		title:         req.Title,
		content:       req.Content,
		writeDatetime: now.Local().Format(DatetimeLayout),
		writerEmail:   email,
	}
}

// HydrateBoard rebuilds a board from stored fields. Nothing is validated.
func HydrateBoard(number int64, title, content, writeDatetime string, favoriteCount, commentCount, viewCount int, writerEmail string) Board {
	return Board{
		number:        number,
		title:         title,
		content:       content,
		writeDatetime: writeDatetime,
		favoriteCount: favoriteCount,
		commentCount:  commentCount,
		viewCount:     viewCount,
		writerEmail:   writerEmail,
	}
}

func (b Board) Number() int64 { return b.number }
func (b Board) Title() string { return b.title }
func (b Board) Content() string { return b.content }
func (b Board) WriteDatetime() string { return b.writeDatetime }
func (b Board) FavoriteCount() int { return b.favoriteCount }
func (b Board) CommentCount() int { return b.commentCount }
func (b Board) ViewCount() int { return b.viewCount }
func (b Board) WriterEmail() string { return b.writerEmail }

// AssignNumber sets the storage identity of a board that was never persisted.
func (b *Board) AssignNumber(number int64) error {
	if b.number != 0 {
		return ErrNumberAlreadyAssigned
	}

	b.number = number

	return nil
}

func (b *Board) IncreaseViewCount() {
	b.viewCount++
}

func (b *Board) IncreaseFavoriteCount() {
	b.favoriteCount++
}

// DecreaseFavoriteCount is a no-op once the count reached zero.
func (b *Board) DecreaseFavoriteCount() {
	if b.favoriteCount > 0 {
		b.favoriteCount--
	}
}

func (b *Board) IncreaseCommentCount() {
	b.commentCount++
}

// DecreaseCommentCount is a no-op once the count reached zero.
func (b *Board) DecreaseCommentCount() {
	if b.commentCount > 0 {
		b.commentCount--
	}
}

// Patch replaces both the title and the content.
func (b *Board) Patch(req PatchBoardRequest) {
	b.title = req.Title
	b.content = req.Content
}

func (b Board) Equal(other Board) bool {
	return b == other
}
