package gpu

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/emberline/ember/internal/sim"
)

// WriteSnapshot dumps a readback to a uniquely named CSV under dir (the
// temp dir when empty) and returns the path. Offline inspection only.
func WriteSnapshot(dir string, pool []sim.Particle) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "ember-"+uuid.NewString()+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "index,pos_x,pos_y,vel_x,vel_y,r,g,b,a,age,lifetime"); err != nil {
		return "", err
	}
	for i, p := range pool {
		_, err := fmt.Fprintf(f, "%d,%g,%g,%g,%g,%g,%g,%g,%g,%g,%g\n",
			i,
			p.Position[0], p.Position[1],
			p.Velocity[0], p.Velocity[1],
			p.Color[0], p.Color[1], p.Color[2], p.Color[3],
			p.Age, p.LifeTime)
		if err != nil {
			return "", err
		}
	}
	return path, nil
}
