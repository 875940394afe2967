package db

// Repositories provides access to all database repositories
type Repositories struct {
	db         *DB
	Channels   *ChannelRepository
	Programmes *ProgrammeRepository
	Runs       *RunRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		db:         db,
		Channels:   NewChannelRepository(db),
		Programmes: NewProgrammeRepository(db),
		Runs:       NewRunRepository(db),
	}
}

// DB returns the connection the repositories share
func (r *Repositories) DB() *DB {
	return r.db
}
