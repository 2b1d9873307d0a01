// File: charabracket/services/library_service.go
package services

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/charabracket/charabracket/brackets"
	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"github.com/charabracket/charabracket/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// manifestFileName - имя манифеста внутри архива библиотеки.
const manifestFileName = "library.json"

type LibraryService interface {
	ExportLibrary(ctx context.Context, ownerID int, w io.Writer) error
	ImportLibrary(ctx context.Context, ownerID int, archive io.ReaderAt, size int64) (*models.ImportSummary, error)
}

type libraryService struct {
	db               *sql.DB
	characterRepo    repositories.CharacterRepository
	characterTagRepo repositories.CharacterTagRepository
	tagRepo          repositories.TagRepository
	groupRepo        repositories.GroupRepository
	imageRepo        repositories.CharacterImageRepository
	tournamentRepo   repositories.TournamentRepository
	matchRepo        repositories.MatchRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewLibraryService(
	db *sql.DB,
	characterRepo repositories.CharacterRepository,
	characterTagRepo repositories.CharacterTagRepository,
	tagRepo repositories.TagRepository,
	groupRepo repositories.GroupRepository,
	imageRepo repositories.CharacterImageRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LibraryService {
	return &libraryService{
		db:               db,
		characterRepo:    characterRepo,
		characterTagRepo: characterTagRepo,
		tagRepo:          tagRepo,
		groupRepo:        groupRepo,
		imageRepo:        imageRepo,
		tournamentRepo:   tournamentRepo,
		matchRepo:        matchRepo,
		uploader:         uploader,
		logger:           logger,
	}
}

// ExportLibrary пишет в w zip-архив: манифест library.json первой записью,
// затем каждый файл изображения под его ключом в хранилище. Недоступные
// файлы пропускаются с предупреждением в логе.
func (s *libraryService) ExportLibrary(ctx context.Context, ownerID int, w io.Writer) error {
	manifest, err := s.buildManifest(ctx, ownerID)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	manifestEntry, err := zw.Create(manifestFileName)
	if err != nil {
		return fmt.Errorf("failed to create manifest entry: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if _, err := manifestEntry.Write(manifestJSON); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	for _, image := range manifest.Images {
		if err := s.copyImageEntry(ctx, zw, image.ObjectKey); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "Skipping image in export",
					slog.Int("image_id", image.ID),
					slog.String("key", image.ObjectKey),
					slog.Any("error", err))
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func (s *libraryService) buildManifest(ctx context.Context, ownerID int) (*models.LibraryExport, error) {
	var (
		characters  []models.Character
		tags        []models.Tag
		groups      []models.Group
		images      []models.CharacterImage
		tournaments []models.Tournament
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		characters, err = s.characterRepo.List(gCtx, repositories.ListCharactersFilter{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("failed to list characters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tags, err = s.tagRepo.ListByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		groups, err = s.groupRepo.ListByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		images, err = s.imageRepo.ListByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tournaments, err = s.tournamentRepo.List(gCtx, repositories.ListTournamentsFilter{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("failed to list tournaments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	characterIDs := make([]int, len(characters))
	for i, c := range characters {
		characterIDs[i] = c.ID
	}
	tagsByCharacter, err := s.characterTagRepo.MapByCharacterIDs(ctx, characterIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load character tags: %w", err)
	}

	manifest := &models.LibraryExport{
		Version:     models.LibraryExportVersion,
		ExportedAt:  time.Now().UTC(),
		Characters:  make([]models.ExportCharacter, 0, len(characters)),
		Tags:        make([]models.ExportTag, 0, len(tags)),
		Groups:      make([]models.ExportGroup, 0, len(groups)),
		Images:      make([]models.ExportImage, 0, len(images)),
		Tournaments: make([]models.ExportTournament, 0, len(tournaments)),
	}

	for _, c := range characters {
		characterTags := tagsByCharacter[c.ID]
		tagIDs := make([]int, len(characterTags))
		for i, tag := range characterTags {
			tagIDs[i] = tag.ID
		}
		manifest.Characters = append(manifest.Characters, models.ExportCharacter{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			GroupID:     c.GroupID,
			TagIDs:      tagIDs,
		})
	}
	for _, tag := range tags {
		manifest.Tags = append(manifest.Tags, models.ExportTag{ID: tag.ID, Name: tag.Name})
	}
	for _, group := range groups {
		manifest.Groups = append(manifest.Groups, models.ExportGroup{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
		})
	}
	for _, image := range images {
		manifest.Images = append(manifest.Images, models.ExportImage{
			ID:          image.ID,
			CharacterID: image.CharacterID,
			ObjectKey:   image.ObjectKey,
			ContentType: image.ContentType,
			Width:       image.Width,
			Height:      image.Height,
			SizeBytes:   image.SizeBytes,
		})
	}
	for _, t := range tournaments {
		matches, err := s.matchRepo.ListByTournament(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list matches for tournament %d: %w", t.ID, err)
		}
		manifest.Tournaments = append(manifest.Tournaments, models.ExportTournament{
			ID:        t.ID,
			Name:      t.Name,
			Format:    t.Format,
			Status:    t.Status,
			WinnerID:  t.WinnerID,
			CreatedAt: t.CreatedAt,
			Matches:   matches,
		})
	}

	return manifest, nil
}

// copyImageEntry переносит файл из хранилища в архив без пересжатия:
// изображения уже сжаты, deflate им не нужен.
func (s *libraryService) copyImageEntry(ctx context.Context, zw *zip.Writer, key string) error {
	rc, err := s.uploader.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   key,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := io.Copy(entry, rc); err != nil {
		return fmt.Errorf("failed to copy image data: %w", err)
	}
	return nil
}

// ImportLibrary восстанавливает библиотеку из архива экспорта. Все id
// назначаются заново, перекрёстные ссылки сохраняются через карты
// соответствия. Строки БД пишутся в одной транзакции; загруженные в
// хранилище файлы при откате удаляются best-effort.
func (s *libraryService) ImportLibrary(ctx context.Context, ownerID int, archive io.ReaderAt, size int64) (*models.ImportSummary, error) {
	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportInvalidArchive, err)
	}

	manifest, err := readManifest(zr)
	if err != nil {
		return nil, err
	}
	if manifest.Version != models.LibraryExportVersion {
		return nil, fmt.Errorf("%w: version %d", ErrImportUnsupportedVersion, manifest.Version)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	var uploadedKeys []string
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.cleanupUploads(ctx, uploadedKeys)
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
			s.cleanupUploads(ctx, uploadedKeys)
		}
	}()

	summary := &models.ImportSummary{}

	groupIDMap := make(map[int]int, len(manifest.Groups))
	for _, exported := range manifest.Groups {
		name, nameErr := trimmedName(exported.Name)
		if nameErr != nil {
			txErr = fmt.Errorf("%w: group %d: %w", ErrImportInvalidArchive, exported.ID, nameErr)
			return nil, txErr
		}
		group := &models.Group{OwnerID: ownerID, Name: name, Description: exported.Description}
		if txErr = s.groupRepo.Create(ctx, tx, group); txErr != nil {
			if errors.Is(txErr, repositories.ErrGroupNameConflict) {
				txErr = fmt.Errorf("%w: group %q", ErrGroupNameConflict, name)
			}
			return nil, txErr
		}
		groupIDMap[exported.ID] = group.ID
		summary.Groups++
	}

	tagIDMap := make(map[int]int, len(manifest.Tags))
	for _, exported := range manifest.Tags {
		name, nameErr := trimmedName(exported.Name)
		if nameErr != nil {
			txErr = fmt.Errorf("%w: tag %d: %w", ErrImportInvalidArchive, exported.ID, nameErr)
			return nil, txErr
		}
		tag := &models.Tag{OwnerID: ownerID, Name: name}
		if txErr = s.tagRepo.Create(ctx, tx, tag); txErr != nil {
			if errors.Is(txErr, repositories.ErrTagNameConflict) {
				txErr = fmt.Errorf("%w: tag %q", ErrTagNameConflict, name)
			}
			return nil, txErr
		}
		tagIDMap[exported.ID] = tag.ID
		summary.Tags++
	}

	characterIDMap := make(map[int]int, len(manifest.Characters))
	for _, exported := range manifest.Characters {
		name, nameErr := trimmedName(exported.Name)
		if nameErr != nil {
			txErr = fmt.Errorf("%w: character %d: %w", ErrImportInvalidArchive, exported.ID, nameErr)
			return nil, txErr
		}

		character := &models.Character{
			OwnerID:     ownerID,
			Name:        name,
			Description: exported.Description,
		}
		if exported.GroupID != nil {
			if mapped, ok := groupIDMap[*exported.GroupID]; ok {
				character.GroupID = &mapped
			}
		}

		if txErr = s.characterRepo.Create(ctx, tx, character); txErr != nil {
			if errors.Is(txErr, repositories.ErrCharacterNameConflict) {
				txErr = fmt.Errorf("%w: character %q", ErrCharacterNameConflict, name)
			}
			return nil, txErr
		}
		characterIDMap[exported.ID] = character.ID

		tagIDs := make([]int, 0, len(exported.TagIDs))
		for _, oldID := range exported.TagIDs {
			if mapped, ok := tagIDMap[oldID]; ok {
				tagIDs = append(tagIDs, mapped)
			}
		}
		if txErr = s.characterTagRepo.Set(ctx, tx, character.ID, tagIDs); txErr != nil {
			return nil, txErr
		}
		summary.Characters++
	}

	seenHashes := make(map[string]struct{}, len(manifest.Images))
	for _, exported := range manifest.Images {
		keys, imported, importErr := s.importImage(ctx, tx, ownerID, exported, entries, characterIDMap, seenHashes)
		uploadedKeys = append(uploadedKeys, keys...)
		if importErr != nil {
			txErr = importErr
			return nil, txErr
		}
		if imported {
			summary.Images++
		} else {
			summary.SkippedImages++
		}
	}

	for _, exported := range manifest.Tournaments {
		if txErr = s.importTournament(ctx, tx, ownerID, exported, characterIDMap); txErr != nil {
			return nil, txErr
		}
		summary.Tournaments++
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", txErr)
	}

	return summary, nil
}

func readManifest(zr *zip.Reader) (*models.LibraryExport, error) {
	for _, f := range zr.File {
		if f.Name != manifestFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImportInvalidArchive, err)
		}
		defer rc.Close()

		var manifest models.LibraryExport
		if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImportInvalidArchive, err)
		}
		return &manifest, nil
	}
	return nil, fmt.Errorf("%w: %s missing", ErrImportInvalidArchive, manifestFileName)
}

// importImage переносит один файл из архива в хранилище и создаёт строку
// в рамках транзакции. Возвращает ключи, загруженные в хранилище, и
// признак того, что изображение было записано, а не пропущено.
// Повреждённые и дублирующиеся файлы пропускаются, ошибка возвращается
// только при отказе хранилища или БД.
func (s *libraryService) importImage(
	ctx context.Context,
	tx *sql.Tx,
	ownerID int,
	exported models.ExportImage,
	entries map[string]*zip.File,
	characterIDMap map[int]int,
	seenHashes map[string]struct{},
) ([]string, bool, error) {
	characterID, ok := characterIDMap[exported.CharacterID]
	if !ok {
		s.warnImportSkip(ctx, exported, "character missing from manifest")
		return nil, false, nil
	}

	entry, ok := entries[exported.ObjectKey]
	if !ok {
		s.warnImportSkip(ctx, exported, "file missing from archive")
		return nil, false, nil
	}

	rc, err := entry.Open()
	if err != nil {
		s.warnImportSkip(ctx, exported, "file could not be opened")
		return nil, false, nil
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxImageSizeBytes+1))
	rc.Close()
	if err != nil || len(data) > maxImageSizeBytes {
		s.warnImportSkip(ctx, exported, "file unreadable or too large")
		return nil, false, nil
	}

	contentType := http.DetectContentType(data)
	ext, err := extensionForContentType(contentType)
	if err != nil {
		s.warnImportSkip(ctx, exported, "unsupported content type")
		return nil, false, nil
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])
	if _, dup := seenHashes[contentHash]; dup {
		return nil, false, nil
	}
	seenHashes[contentHash] = struct{}{}

	if _, err := s.imageRepo.FindByOwnerAndHash(ctx, ownerID, contentHash); err == nil {
		return nil, false, nil
	} else if !errors.Is(err, repositories.ErrImageNotFound) {
		return nil, false, fmt.Errorf("failed to check for duplicate image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		s.warnImportSkip(ctx, exported, "image data could not be decoded")
		return nil, false, nil
	}
	thumb := imaging.Fit(img, thumbnailBoundPx, thumbnailBoundPx, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, false, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	fileID := uuid.NewString()
	objectKey := "characters/" + fileID + ext
	thumbKey := "thumbs/" + fileID + ".jpg"

	var uploaded []string
	if _, err := s.uploader.Upload(ctx, objectKey, contentType, bytes.NewReader(data)); err != nil {
		return uploaded, false, fmt.Errorf("failed to store image: %w", err)
	}
	uploaded = append(uploaded, objectKey)
	if _, err := s.uploader.Upload(ctx, thumbKey, "image/jpeg", &thumbBuf); err != nil {
		return uploaded, false, fmt.Errorf("failed to store thumbnail: %w", err)
	}
	uploaded = append(uploaded, thumbKey)

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
	if err := s.imageRepo.Create(ctx, tx, image); err != nil {
		return uploaded, false, fmt.Errorf("failed to save image record: %w", err)
	}

	return uploaded, true, nil
}

func (s *libraryService) importTournament(
	ctx context.Context,
	tx *sql.Tx,
	ownerID int,
	exported models.ExportTournament,
	characterIDMap map[int]int,
) error {
	name, err := trimmedName(exported.Name)
	if err != nil {
		return fmt.Errorf("%w: tournament %d: %w", ErrImportInvalidArchive, exported.ID, err)
	}
	if !brackets.Format(exported.Format).Valid() {
		return fmt.Errorf("%w: tournament %q has unknown format %q", ErrImportInvalidArchive, name, exported.Format)
	}
	if exported.Status != models.TournamentActive && exported.Status != models.TournamentCompleted {
		return fmt.Errorf("%w: tournament %q has unknown status %q", ErrImportInvalidArchive, name, exported.Status)
	}

	tournament := &models.Tournament{
		OwnerID: ownerID,
		Name:    name,
		Format:  exported.Format,
		Status:  models.TournamentActive,
	}
	if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
		return err
	}

	matches := make([]models.TournamentMatch, len(exported.Matches))
	for i, m := range exported.Matches {
		matches[i] = models.TournamentMatch{
			TournamentID: tournament.ID,
			Section:      m.Section,
			Round:        m.Round,
			MatchIndex:   m.MatchIndex,
			Entrant1ID:   remapID(m.Entrant1ID, characterIDMap),
			Entrant2ID:   remapID(m.Entrant2ID, characterIDMap),
			WinnerID:     remapID(m.WinnerID, characterIDMap),
			CompletedAt:  m.CompletedAt,
		}
	}
	if err := s.matchRepo.ReplaceForTournament(ctx, tx, tournament.ID, matches); err != nil {
		return err
	}

	if exported.Status == models.TournamentCompleted {
		winnerID := remapID(exported.WinnerID, characterIDMap)
		if err := s.tournamentRepo.UpdateStatusAndWinner(ctx, tx, tournament.ID, models.TournamentCompleted, winnerID); err != nil {
			return err
		}
	}
	return nil
}

// remapID переводит старый id через карту соответствия. Ссылка на
// отсутствующего персонажа обнуляется, сетка восстанавливается частично.
func remapID(oldID *int, idMap map[int]int) *int {
	if oldID == nil {
		return nil
	}
	if mapped, ok := idMap[*oldID]; ok {
		return &mapped
	}
	return nil
}

func (s *libraryService) warnImportSkip(ctx context.Context, exported models.ExportImage, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, "Skipping image in import",
		slog.Int("image_id", exported.ID),
		slog.String("key", exported.ObjectKey),
		slog.String("reason", reason))
}

func (s *libraryService) cleanupUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.uploader.Delete(ctx, key); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "Failed to delete uploaded object after rollback",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}
}
