package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/export"
)

type rosterLister interface {
	ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.ParticipantDetail, error)
}

type waitlistLister interface {
	ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error)
}

// RosterFile is a rendered roster document.
type RosterFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

var rosterHeaders = []string{"Student", "Status", "Substitute", "Absent", "Via link", "Waitlist"}

// RosterService exports the participants of an occurrence.
type RosterService struct {
	classes      occurrenceReader
	participants rosterLister
	waitlist     waitlistLister
	exporters    map[models.RosterFormat]export.Exporter
}

// NewRosterService constructs RosterService with CSV and PDF renderers.
func NewRosterService(classes occurrenceReader, participants rosterLister, waitlist waitlistLister) *RosterService {
	return &RosterService{
		classes:      classes,
		participants: participants,
		waitlist:     waitlist,
		exporters: map[models.RosterFormat]export.Exporter{
			models.RosterFormatCSV: export.NewCSVExporter(),
			models.RosterFormatPDF: export.NewPDFExporter(),
		},
	}
}

// Export renders the roster and open waitlist of the occurrence.
func (s *RosterService) Export(ctx context.Context, key models.OccurrenceKey, format models.RosterFormat) (*RosterFile, error) {
	if format == "" {
		format = models.RosterFormatCSV
	}
	exporter, ok := s.exporters[format]
	if !ok || !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported roster format")
	}
	occurrence, err := loadOccurrence(ctx, s.classes, key)
	if err != nil {
		return nil, err
	}
	participants, err := s.participants.ListByOccurrence(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
	}
	waiting, err := s.waitlist.ListByOccurrence(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}

	content, err := exporter.Render(rosterDataset(occurrence, participants, waiting))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &RosterFile{
		Filename:    fmt.Sprintf("roster_%s.%s", key.String(), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Content:     content,
	}, nil
}

func rosterDataset(occurrence *models.ClassOccurrence, participants []models.ParticipantDetail, waiting []models.WaitlistEntryDetail) export.Dataset {
	subtitle := fmt.Sprintf("%s %s %s", occurrence.Weekday(), occurrence.Date, occurrence.StartTime)
	if occurrence.TrainerName != nil && *occurrence.TrainerName != "" {
		subtitle += " · " + *occurrence.TrainerName
	}
	data := export.Dataset{
		Title:    occurrence.ClubName + " · " + occurrence.Name,
		Subtitle: subtitle,
		Headers:  rosterHeaders,
	}
	for _, p := range participants {
		if p.Status == models.ParticipantStatusCancelled {
			continue
		}
		data.Rows = append(data.Rows, map[string]string{
			"Student":    p.StudentName,
			"Status":     string(p.Status),
			"Substitute": yesNo(p.IsSubstitute),
			"Absent":     yesNo(p.AbsenceConfirmed),
			"Via link":   yesNo(p.SourceToken != nil),
		})
	}
	position := 0
	for _, entry := range waiting {
		if !entry.Status.Open() {
			continue
		}
		position++
		data.Rows = append(data.Rows, map[string]string{
			"Student":  entry.StudentName,
			"Status":   string(entry.Status),
			"Waitlist": fmt.Sprintf("#%d (%d)", position, entry.RequestedSpots),
		})
	}
	return data
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
