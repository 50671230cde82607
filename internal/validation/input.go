package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxPhoneLength       = 20
	MaxDescriptionLength = 2000
	MaxContactLength     = 200
	MaxAddressLength     = 300
	MaxPhotoPathLength   = 255
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	phoneRegex       = regexp.MustCompile(`^\+?[0-9][0-9\s-]{5,18}[0-9]$`)
	photoNameRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.(jpg|jpeg|png|webp)$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateName проверяет имя пользователя или ребёнка.
func ValidateName(fieldName, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s обязательно", fieldName)
	}
	return ValidateLength(fieldName, name, MinNameLength, MaxNameLength)
}

// ValidatePhone проверяет номер телефона. Пустой номер допустим.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if len(phone) > MaxPhoneLength || !phoneRegex.MatchString(phone) {
		return fmt.Errorf("некорректный номер телефона")
	}
	return nil
}

// ValidateText проверяет обязательное текстовое поле ограниченной длины.
func ValidateText(fieldName, value string, max int) error {
	if err := ValidateNonEmpty(fieldName, value); err != nil {
		return err
	}
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, max)
}

// ValidatePhotoPath проверяет путь, выданный хранилищем фотографий:
// "<uuid пользователя>/<имя файла>" без переходов по каталогам.
func ValidatePhotoPath(p string) error {
	if p == "" || len(p) > MaxPhotoPathLength {
		return fmt.Errorf("некорректный путь к фотографии")
	}
	if strings.Contains(p, "..") || strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return fmt.Errorf("некорректный путь к фотографии")
	}

	dir, file := path.Split(p)
	if strings.Count(p, "/") != 1 || dir == "" || !photoNameRegex.MatchString(file) {
		return fmt.Errorf("некорректный путь к фотографии")
	}
	return nil
}
