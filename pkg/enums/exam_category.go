package enums

import "fmt"

// ExamCategory groups catalogue content by target exam track.
type ExamCategory string

const (
	ExamCategoryGenelYetenek     ExamCategory = "genel_yetenek"
	ExamCategoryGenelKultur      ExamCategory = "genel_kultur"
	ExamCategoryEgitimBilimleri  ExamCategory = "egitim_bilimleri"
	ExamCategoryAGS              ExamCategory = "ags"
	ExamCategoryAlanBilgisi      ExamCategory = "alan_bilgisi"
	ExamCategoryGuncelBilgiler   ExamCategory = "guncel_bilgiler"
	ExamCategoryDenemeSinavlari  ExamCategory = "deneme_sinavlari"
)

var validExamCategories = []ExamCategory{
	ExamCategoryGenelYetenek,
	ExamCategoryGenelKultur,
	ExamCategoryEgitimBilimleri,
	ExamCategoryAGS,
	ExamCategoryAlanBilgisi,
	ExamCategoryGuncelBilgiler,
	ExamCategoryDenemeSinavlari,
}

// String implements fmt.Stringer.
func (c ExamCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ExamCategory.
func (c ExamCategory) IsValid() bool {
	for _, candidate := range validExamCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseExamCategory converts raw input into an ExamCategory.
func ParseExamCategory(value string) (ExamCategory, error) {
	for _, candidate := range validExamCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exam category %q", value)
}
