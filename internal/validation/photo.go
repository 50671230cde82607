package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Разрешённые типы фотографий: MIME -> расширение файла в хранилище
var allowedPhotoTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Разрешённые расширения исходного имени файла
var allowedPhotoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// DetectPhotoType определяет тип изображения по магическим байтам и сверяет его
// с расширением исходного имени. Возвращает расширение для хранения и MIME тип.
func DetectPhotoType(originalName string, head []byte) (ext, mime string, err error) {
	nameExt := strings.ToLower(filepath.Ext(originalName))
	if !allowedPhotoExtensions[nameExt] {
		return "", "", fmt.Errorf("неподдерживаемый формат файла, разрешены: jpg, jpeg, png, webp")
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", "", fmt.Errorf("не удалось определить тип файла, разрешены только изображения")
	}

	ext, ok := allowedPhotoTypes[kind.MIME.Value]
	if !ok {
		return "", "", fmt.Errorf("неподдерживаемый тип файла (%s)", kind.MIME.Value)
	}

	// .jpg и .jpeg - это одно и то же
	if nameExt == ".jpeg" {
		nameExt = ".jpg"
	}
	if nameExt != "."+ext {
		return "", "", fmt.Errorf("расширение файла (%s) не соответствует реальному типу (.%s)", nameExt, ext)
	}

	return ext, kind.MIME.Value, nil
}
