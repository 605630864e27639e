package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

var ErrInvalidPreferences = errors.New("invalid preferences")

// PreferenceService administra las preferencias de comunicacion persistidas
// en User.Metadata. La deteccion sobre mensajes es best-effort: sin
// coincidencias no se toca nada del usuario.
type PreferenceService struct {
	users repository.UserRepository
}

func NewPreferenceService(users repository.UserRepository) *PreferenceService {
	return &PreferenceService{users: users}
}

func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (domain.Preferences, error) {
	if s.users == nil {
		return domain.Preferences{}, errors.New("preference service not configured")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Preferences{}, ErrUserNotFound
		}
		return domain.Preferences{}, err
	}
	return decodePreferences(user.Metadata), nil
}

// Update valida el parcial recibido, lo mergea last-writer-wins sobre lo
// persistido y escribe solo cuando hubo cambios reales.
func (s *PreferenceService) Update(ctx context.Context, userID uuid.UUID, in domain.Preferences) (domain.Preferences, bool, error) {
	if s.users == nil {
		return domain.Preferences{}, false, errors.New("preference service not configured")
	}
	if !in.Validate() {
		return domain.Preferences{}, false, ErrInvalidPreferences
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Preferences{}, false, ErrUserNotFound
		}
		return domain.Preferences{}, false, err
	}

	current := decodePreferences(user.Metadata)
	if !current.Merge(in) {
		return current, false, nil
	}
	current.UpdatedAt = time.Now().UTC()

	metadata := cloneMetadata(user.Metadata)
	metadata[domain.MetadataKeyPreferences] = encodePreferences(current)
	if err := s.users.UpdateMetadata(ctx, userID, metadata); err != nil {
		return domain.Preferences{}, false, err
	}
	return current, true, nil
}

// Clear borra las preferencias persistidas. Sin preferencias es un no-op.
func (s *PreferenceService) Clear(ctx context.Context, userID uuid.UUID) error {
	if s.users == nil {
		return errors.New("preference service not configured")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Metadata == nil {
		return nil
	}
	if _, ok := user.Metadata[domain.MetadataKeyPreferences]; !ok {
		return nil
	}
	metadata := cloneMetadata(user.Metadata)
	delete(metadata, domain.MetadataKeyPreferences)
	return s.users.UpdateMetadata(ctx, userID, metadata)
}

// ExtractFromMessage corre el detector sobre un mensaje del usuario y
// persiste lo reconocido. Devuelve si hubo cambios.
func (s *PreferenceService) ExtractFromMessage(ctx context.Context, userID uuid.UUID, message string) (domain.Preferences, bool, error) {
	detected := DetectPreferences(message)
	if detected.IsZero() {
		return domain.Preferences{}, false, nil
	}
	return s.Update(ctx, userID, detected)
}

/* =======================
   Metadata helpers
   ======================= */

// decodePreferences tolera tanto el struct recien escrito como el
// map[string]any que devuelve el roundtrip por jsonb.
func decodePreferences(metadata map[string]any) domain.Preferences {
	if metadata == nil {
		return domain.Preferences{}
	}
	raw, ok := metadata[domain.MetadataKeyPreferences]
	if !ok {
		return domain.Preferences{}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return domain.Preferences{}
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(encoded, &prefs); err != nil {
		return domain.Preferences{}
	}
	return prefs
}

func encodePreferences(prefs domain.Preferences) map[string]any {
	encoded, err := json.Marshal(prefs)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(encoded, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func cloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
