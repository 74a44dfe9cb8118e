package services

func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}
