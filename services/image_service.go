package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"github.com/charabracket/charabracket/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Регистрирует webp-декодер для imaging.Decode.
	_ "golang.org/x/image/webp"
)

const (
	maxImageSizeBytes = 10 << 20 // 10 MB
	thumbnailBoundPx  = 320
	thumbnailQuality  = 85
)

type ImageService interface {
	UploadImage(ctx context.Context, ownerID, characterID int, file io.Reader) (*models.CharacterImage, error)
	ListImages(ctx context.Context, ownerID, characterID int) ([]models.CharacterImage, error)
	DeleteImage(ctx context.Context, ownerID, characterID, imageID int) error
}

type imageService struct {
	characterRepo repositories.CharacterRepository
	imageRepo     repositories.CharacterImageRepository
	uploader      storage.FileUploader
	logger        *slog.Logger
}

func NewImageService(
	characterRepo repositories.CharacterRepository,
	imageRepo repositories.CharacterImageRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ImageService {
	return &imageService{
		characterRepo: characterRepo,
		imageRepo:     imageRepo,
		uploader:      uploader,
		logger:        logger,
	}
}

func (s *imageService) UploadImage(ctx context.Context, ownerID, characterID int, file io.Reader) (*models.CharacterImage, error) {
	if _, err := s.getOwnedCharacter(ctx, ownerID, characterID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) > maxImageSizeBytes {
		return nil, ErrImageTooLarge
	}

	// Тип определяется по содержимому, заголовку запроса доверять нельзя.
	contentType := http.DetectContentType(data)
	ext, err := extensionForContentType(contentType)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	if err := s.checkDuplicate(ctx, ownerID, contentHash); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageUndecodable, err)
	}

	thumb := imaging.Fit(img, thumbnailBoundPx, thumbnailBoundPx, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	fileID := uuid.NewString()
	objectKey := "characters/" + fileID + ext
	thumbKey := "thumbs/" + fileID + ".jpg"

	if _, err := s.uploader.Upload(ctx, objectKey, contentType, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	if _, err := s.uploader.Upload(ctx, thumbKey, "image/jpeg", &thumbBuf); err != nil {
		s.removeObject(ctx, objectKey)
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	bounds := img.Bounds()
	image := &models.CharacterImage{
		CharacterID: characterID,
		ObjectKey:   objectKey,
		ThumbKey:    thumbKey,
		ContentHash: contentHash,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		SizeBytes:   int64(len(data)),
	}

	if err := s.imageRepo.Create(ctx, nil, image); err != nil {
		s.removeObject(ctx, objectKey)
		s.removeObject(ctx, thumbKey)
		if errors.Is(err, repositories.ErrImageInvalidCharacter) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to save image record: %w", err)
	}

	populateImageURLs(image, s.uploader)
	return image, nil
}

func (s *imageService) ListImages(ctx context.Context, ownerID, characterID int) ([]models.CharacterImage, error) {
	if _, err := s.getOwnedCharacter(ctx, ownerID, characterID); err != nil {
		return nil, err
	}

	images, err := s.imageRepo.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images for character %d: %w", characterID, err)
	}

	populateImageListURLs(images, s.uploader)
	return images, nil
}

func (s *imageService) DeleteImage(ctx context.Context, ownerID, characterID, imageID int) error {
	if _, err := s.getOwnedCharacter(ctx, ownerID, characterID); err != nil {
		return err
	}

	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repositories.ErrImageNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to get image %d: %w", imageID, err)
	}
	if image.CharacterID != characterID {
		return ErrImageNotFound
	}

	if err := s.imageRepo.Delete(ctx, imageID); err != nil {
		if errors.Is(err, repositories.ErrImageNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to delete image %d: %w", imageID, err)
	}

	// Строка удалена, файлы чистятся best-effort.
	s.removeObject(ctx, image.ObjectKey)
	s.removeObject(ctx, image.ThumbKey)
	return nil
}

// checkDuplicate ищет изображение с тем же хэшем у того же владельца.
// В ошибке указывается персонаж, к которому уже прикреплён дубликат.
func (s *imageService) checkDuplicate(ctx context.Context, ownerID int, contentHash string) error {
	existing, err := s.imageRepo.FindByOwnerAndHash(ctx, ownerID, contentHash)
	if err != nil {
		if errors.Is(err, repositories.ErrImageNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check for duplicate image: %w", err)
	}

	holder, holderErr := s.characterRepo.GetByID(ctx, existing.CharacterID)
	if holderErr != nil {
		return ErrImageDuplicate
	}
	return fmt.Errorf("%w: character %q", ErrImageDuplicate, holder.Name)
}

func (s *imageService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.uploader.Delete(ctx, key); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "Failed to delete stored object",
			slog.String("key", key),
			slog.Any("error", err))
	}
}

func (s *imageService) getOwnedCharacter(ctx context.Context, ownerID, characterID int) (*models.Character, error) {
	character, err := s.characterRepo.GetByID(ctx, characterID)
	if err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to get character %d: %w", characterID, err)
	}
	if character.OwnerID != ownerID {
		return nil, ErrForbiddenOperation
	}
	return character, nil
}
