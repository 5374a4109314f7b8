package mining

// Progress receives one Advance per eligible revision, processed or skipped.
type Progress interface {
	Start(total int)
	Advance()
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int) {}
func (noProgress) Advance()  {}
func (noProgress) Finish()   {}
