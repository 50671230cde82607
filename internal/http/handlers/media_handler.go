package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bharatalert-backend/internal/dto"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers/common"
	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
	"github.com/ignatzorin/bharatalert-backend/internal/storage"
	"github.com/ignatzorin/bharatalert-backend/internal/validation"
)

// MediaHandler управляет загрузкой фотографий к заявкам.
type MediaHandler struct {
	storage *storage.PhotoStorage
}

// NewMediaHandler создаёт новый хэндлер.
func NewMediaHandler(storage *storage.PhotoStorage) *MediaHandler {
	return &MediaHandler{storage: storage}
}

// UploadPhoto обрабатывает POST /api/media/photos (multipart, поле file).
func (h *MediaHandler) UploadPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, apperror.ErrUnauthorized)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondAppError(c, apperror.Validation("поле file обязательно"))
		return
	}
	if file.Size == 0 {
		common.RespondAppError(c, apperror.Validation("файл не может быть пустым"))
		return
	}
	if file.Size > h.storage.MaxUploadBytes() {
		common.RespondAppError(c, apperror.Validation("размер файла превышает лимит"))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer src.Close()

	// Читаем первые 512 байт для проверки магических байтов
	buffer := make([]byte, 512)
	n, err := io.ReadFull(src, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		common.RespondAppError(c, apperror.Validation("не удалось прочитать файл"))
		return
	}

	ext, contentType, err := validation.DetectPhotoType(file.Filename, buffer[:n])
	if err != nil {
		common.RespondAppError(c, apperror.Validation(err.Error()))
		return
	}

	// Сбрасываем позицию файла для сохранения
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		common.RespondAppError(c, err)
		return
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), userID, ext, src)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			common.RespondAppError(c, apperror.Validation("размер файла превышает лимит"))
			return
		}
		common.RespondAppError(c, err)
		return
	}

	logger.Component("media").WithFields(logrus.Fields{
		"user_id": userID,
		"path":    relativePath,
		"size":    size,
	}).Info("фотография загружена")

	c.JSON(http.StatusCreated, dto.PhotoUploadResponse{
		Path:        relativePath,
		URL:         "/media/" + relativePath,
		ContentType: contentType,
		Size:        size,
	})
}

// DeletePhoto обрабатывает DELETE /api/media/photos/*path. Удалить можно только свой файл.
func (h *MediaHandler) DeletePhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, apperror.ErrUnauthorized)
		return
	}

	relativePath := strings.TrimPrefix(c.Param("path"), "/")
	if err := validation.ValidatePhotoPath(relativePath); err != nil {
		common.RespondAppError(c, apperror.Validation(err.Error()))
		return
	}
	if !strings.HasPrefix(relativePath, userID.String()+"/") {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на удаление этого файла"))
		return
	}
	if !h.storage.Exists(relativePath) {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeNotFound, "файл не найден"))
		return
	}

	if err := h.storage.Delete(c.Request.Context(), relativePath); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
