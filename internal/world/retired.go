package world

// RetiredDog is the final record of a dog removed for inactivity. Once
// written to the record store it is never updated.
type RetiredDog struct {
	Name       string
	Score      int
	PlayTimeMs int64
}
