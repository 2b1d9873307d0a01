package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrUserNotFound       = errors.New("user not found")
	ErrCharacterNotFound  = errors.New("character not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Ошибки валидации и бизнес-правил
	ErrNameRequired          = errors.New("name is required")
	ErrNameTooLong           = errors.New("name must not exceed 120 characters")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrEmailInvalid          = errors.New("email address is not valid")
	ErrNotEnoughCharacters   = errors.New("at least two characters are required")
	ErrDuplicateCharacters   = errors.New("character ids must be distinct")
	ErrUnknownFormat         = errors.New("unknown tournament format")
	ErrUnknownStatus         = errors.New("unknown tournament status")
	ErrInvalidDecision       = errors.New("decision does not apply to the bracket")
	ErrTournamentNotActive   = errors.New("tournament is not active")
	ErrTournamentNotComplete = errors.New("tournament is not complete")
	ErrCharacterInTournament = errors.New("character is referenced by tournament matches")

	// Ошибки конфликтов
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrUserNicknameConflict  = errors.New("nickname is already in use")
	ErrCharacterNameConflict = errors.New("character name is already in use")
	ErrGroupNameConflict     = errors.New("group name is already in use")
	ErrTagNameConflict       = errors.New("tag name is already in use")
	ErrImageDuplicate        = errors.New("identical image already exists in the library")

	// Ошибки доступа
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки изображений
	ErrImageTooLarge        = errors.New("image exceeds the maximum allowed size")
	ErrImageUnsupportedType = errors.New("unsupported image content type")
	ErrImageUndecodable     = errors.New("image data could not be decoded")

	// Ошибки импорта библиотеки
	ErrImportInvalidArchive     = errors.New("archive is not a valid library export")
	ErrImportUnsupportedVersion = errors.New("unsupported library export version")
)
