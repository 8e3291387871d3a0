// Package googleforms imports a Google Forms document as a form definition.
// The import is read-only: responses cannot be submitted back through it.
package googleforms

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"formwidget/internal/form"
	"formwidget/internal/logging"

	forms "google.golang.org/api/forms/v1"
	"google.golang.org/api/option"
)

// ErrEmptyForm is returned when no item of the document maps to a question.
var ErrEmptyForm = errors.New("google form has no supported questions")

// Source loads one Google Form.
type Source struct {
	FormID  string
	Service *forms.Service
}

// New builds a Source with a Forms API client. credentialsFile may be empty
// to use application default credentials.
func New(ctx context.Context, formID, credentialsFile string, opts ...option.ClientOption) (*Source, error) {
	if formID == "" {
		return nil, errors.New("google form id is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(forms.FormsBodyReadonlyScope))

	svc, err := forms.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create forms service: %w", err)
	}
	return &Source{FormID: formID, Service: svc}, nil
}

func (s *Source) String() string { return "google-forms:" + s.FormID }

// Load fetches the document and converts it.
func (s *Source) Load(ctx context.Context) (*form.Form, error) {
	timer := logging.StartTimer(logging.CategorySource, "google forms get")
	defer timer.Stop()

	doc, err := s.Service.Forms.Get(s.FormID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get google form %s: %w", s.FormID, err)
	}
	return Convert(doc)
}

// Convert maps a Forms API document onto a form definition.
//
//	RADIO, DROP_DOWN  -> single-choice
//	CHECKBOX          -> multi-choice
//	scale             -> single-choice, one option per step
//	paragraph text    -> long-answer
//	other text        -> short-answer
//
// Choice questions with any option image use the *-with-image variant.
// Option ids are the option's position ("0", "1", ...). Date, time, file
// upload, grid and rating items are skipped.
func Convert(doc *forms.Form) (*form.Form, error) {
	if doc == nil {
		return nil, ErrEmptyForm
	}
	out := &form.Form{
		ID:             doc.FormId,
		StillAccepting: true,
	}
	if doc.Info != nil {
		out.Name = doc.Info.Title
		if out.Name == "" {
			out.Name = doc.Info.DocumentTitle
		}
		out.Description = doc.Info.Description
	}
	if ps := doc.PublishSettings; ps != nil && ps.PublishState != nil {
		out.StillAccepting = ps.PublishState.IsAcceptingResponses
	}

	for _, item := range doc.Items {
		if item == nil || item.QuestionItem == nil || item.QuestionItem.Question == nil {
			continue
		}
		q, ok := convertQuestion(item)
		if !ok {
			logging.SourceDebug("skipping unsupported item %s (%q)", item.ItemId, item.Title)
			continue
		}
		out.Questions = append(out.Questions, q)
	}

	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyForm, doc.FormId)
	}
	logging.Source("imported google form %s (%d of %d items)", doc.FormId, len(out.Questions), len(doc.Items))
	return out, nil
}

func convertQuestion(item *forms.Item) (form.Question, bool) {
	gq := item.QuestionItem.Question
	q := form.Question{
		ID:          gq.QuestionId,
		Prompt:      item.Title,
		Description: item.Description,
		Required:    gq.Required,
	}

	switch {
	case gq.ChoiceQuestion != nil:
		cq := gq.ChoiceQuestion
		images := false
		for i, o := range cq.Options {
			opt := form.Option{ID: strconv.Itoa(i), Title: o.Value}
			if o.IsOther {
				opt.Title = "Other"
			}
			if o.Image != nil && o.Image.ContentUri != "" {
				opt.Image = o.Image.ContentUri
				images = true
			}
			q.Options = append(q.Options, opt)
		}
		switch cq.Type {
		case "CHECKBOX":
			q.Type = form.TypeMultiChoice
			if images {
				q.Type = form.TypeMultiChoiceWithImage
			}
		case "RADIO", "DROP_DOWN":
			q.Type = form.TypeSingleChoice
			if images {
				q.Type = form.TypeSingleChoiceWithImage
			}
		default:
			return form.Question{}, false
		}

	case gq.ScaleQuestion != nil:
		sq := gq.ScaleQuestion
		if sq.High < sq.Low {
			return form.Question{}, false
		}
		q.Type = form.TypeSingleChoice
		for v := sq.Low; v <= sq.High; v++ {
			opt := form.Option{ID: strconv.Itoa(int(v - sq.Low)), Title: strconv.FormatInt(v, 10)}
			switch v {
			case sq.Low:
				opt.Subtitle = sq.LowLabel
			case sq.High:
				opt.Subtitle = sq.HighLabel
			}
			q.Options = append(q.Options, opt)
		}

	case gq.TextQuestion != nil:
		q.Type = form.TypeShortAnswer
		if gq.TextQuestion.Paragraph {
			q.Type = form.TypeLongAnswer
		}

	default:
		return form.Question{}, false
	}

	if len(q.Options) == 0 && q.Type.IsChoice() {
		return form.Question{}, false
	}
	return q, true
}
