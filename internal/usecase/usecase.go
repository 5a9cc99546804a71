package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
)

type linkRepository interface {
	Save(ctx context.Context, shortCode, originalURL string) (*entity.Link, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error)
	RetrieveAll(ctx context.Context) ([]*entity.Link, error)
	Remove(ctx context.Context, shortCode string) error
}

type clickTracker interface {
	Track(click entity.Click)
}

type LinkUseCase struct {
	shortCodeLength int
	linkRepo        linkRepository
	tracker         clickTracker
	now             func() time.Time
}

func NewLinkUseCase(shortCodeLength int, linkRepo linkRepository, tracker clickTracker) *LinkUseCase {
	if shortCodeLength == 0 {
		shortCodeLength = shortcode.DefaultLength
	}

	return &LinkUseCase{
		shortCodeLength: shortCodeLength,
		linkRepo:        linkRepo,
		tracker:         tracker,
		now:             time.Now,
	}
}

// CreateLink stores a new link. A non-empty shortCode is used as is after
// validation, otherwise a random unused code is generated.
func (uc *LinkUseCase) CreateLink(ctx context.Context, originalURL, shortCode string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.CreateLink"

	if originalURL == "" {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrOriginalURLRequired)
	}

	if shortCode != "" {
		link, err := uc.createWithCustomCode(ctx, originalURL, shortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return link, nil
	}

	for {
		code, err := uc.generateUnusedCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		link, err := uc.linkRepo.Save(ctx, code, originalURL)
		if err != nil {
			// Taken between the check and the insert.
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to save link: %w", op, err)
		}

		return link, nil
	}
}

func (uc *LinkUseCase) createWithCustomCode(ctx context.Context, originalURL, shortCode string) (*entity.Link, error) {
	if err := shortcode.Validate(shortCode); err != nil {
		return nil, err
	}

	_, err := uc.linkRepo.RetrieveByShortCode(ctx, shortCode)
	switch {
	case err == nil:
		return nil, entity.ErrShortCodeExists
	case !errors.Is(err, entity.ErrLinkNotFound):
		return nil, fmt.Errorf("failed to check short code: %w", err)
	}

	link, err := uc.linkRepo.Save(ctx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to save link: %w", err)
	}

	return link, nil
}

// generateUnusedCode loops until the store reports a generated code as free.
// The loop is unbounded: the code space is sparse for the expected number of links.
func (uc *LinkUseCase) generateUnusedCode(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := shortcode.Generate(uc.shortCodeLength)
		if err != nil {
			return "", err
		}

		_, err = uc.linkRepo.RetrieveByShortCode(ctx, code)
		if errors.Is(err, entity.ErrLinkNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check short code: %w", err)
		}
	}
}

func (uc *LinkUseCase) ListLinks(ctx context.Context) ([]*entity.Link, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	links, err := uc.linkRepo.RetrieveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}

func (uc *LinkUseCase) GetLink(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLink"

	link, err := uc.linkRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	return link, nil
}

func (uc *LinkUseCase) DeleteLink(ctx context.Context, shortCode string) error {
	const op = "usecase.LinkUseCase.DeleteLink"

	if err := uc.linkRepo.Remove(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}

// ResolveShortCode returns the link for a redirect and hands the click over
// to the tracker without waiting for it to be stored.
func (uc *LinkUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.ResolveShortCode"

	link, err := uc.linkRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.tracker.Track(entity.Click{
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
		ClickedAt: uc.now(),
	})

	return link, nil
}
