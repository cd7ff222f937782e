package message

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFormatVersion используется, когда узел не прислал ни одной
// корректной версии формата.
const DefaultFormatVersion = "1.11"

// Version - разобранная версия формата вида "1.11" или "1.11.2".
type Version []int

// ParseVersion разбирает строку из неотрицательных чисел, разделённых точками.
// Строки вроде "1.6a", "1..2" или "" считаются некорректными.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("пустая версия формата")
	}
	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("некорректная версия формата %q", s)
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return nil, fmt.Errorf("некорректная версия формата %q", s)
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("некорректная версия формата %q: %w", s, err)
		}
		v = append(v, n)
	}
	return v, nil
}

// Compare сравнивает версии посегментно. Недостающие сегменты равны нулю,
// поэтому "1.11" и "1.11.0" равны.
func (v Version) Compare(other Version) int {
	n := max(len(v), len(other))
	for i := 0; i < n; i++ {
		a, b := segment(v, i), segment(other, i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

func segment(v Version, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// CompareVersions сравнивает две строки версий. Ошибка возвращается,
// если хотя бы одна строка некорректна.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// HighestVersion выбирает наибольшую корректную версию из списка.
// Некорректные строки пропускаются, при равенстве остаётся первая встреченная.
// Если корректных версий нет, возвращается DefaultFormatVersion.
func HighestVersion(versions []string) string {
	var (
		best    string
		bestVer Version
	)
	for _, s := range versions {
		v, err := ParseVersion(s)
		if err != nil {
			continue
		}
		if bestVer == nil || v.Compare(bestVer) > 0 {
			best, bestVer = strings.TrimSpace(s), v
		}
	}
	if bestVer == nil {
		return DefaultFormatVersion
	}
	return best
}
