// README: Team membership lookup for the team commission carve-out.
package commission

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

type Team struct {
	ID             types.ID
	LeaderID       types.ID
	Name           string
	CommissionRate float64
}

type Member struct {
	TeamID   types.ID
	HelperID types.ID
	Active   bool
	JoinedAt time.Time
}

type TeamStore struct{}

func NewTeamStore() *TeamStore {
	return &TeamStore{}
}

// ActiveTeamFor returns nil with no error when the helper has no active membership.
func (s *TeamStore) ActiveTeamFor(ctx context.Context, q infra.DBTX, helperID types.ID) (*Team, error) {
	var t Team
	err := q.QueryRow(ctx, `
		SELECT t.id, t.leader_id, t.name, t.commission_rate
		FROM team_members m
		JOIN teams t ON t.id = m.team_id
		WHERE m.helper_id = $1 AND m.active
		ORDER BY m.joined_at DESC
		LIMIT 1`, string(helperID)).Scan(&t.ID, &t.LeaderID, &t.Name, &t.CommissionRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select active team")
	}
	return &t, nil
}
