package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"jobnest/internal/api/middleware"
	"jobnest/internal/metrics"
	"jobnest/internal/storage"
)

const presignedURLTTL = 15 * time.Minute

// ObjectStorage 为上传与下载所需的对象存储能力。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	StatObject(ctx context.Context, objectKey string) error
	GeneratePresignedURL(ctx context.Context, objectKey, filename string, duration time.Duration) (string, error)
}

// ErrInfected 表示文件未通过病毒扫描。
var ErrInfected = errors.New("malicious file detected")

// Scanner 扫描上传内容。
type Scanner interface {
	Scan(reader io.Reader) error
}

// ClamdScanner 使用 clamd 的 INSTREAM 扫描文件。
type ClamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner 返回连接 addr（如 tcp://clamav:3310）的扫描器。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

// Scan 返回 ErrInfected 或扫描过程中的错误。
func (s *ClamdScanner) Scan(reader io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(reader, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return ErrInfected
		default:
			return fmt.Errorf("scan result %s: %s", result.Status, result.Description)
		}
	}
	return nil
}

// UploadHandler 负责简历上传与文件访问。
type UploadHandler struct {
	storage       ObjectStorage
	scanner       Scanner
	logger        *slog.Logger
	maxBytes      int64
	publicBaseURL string
}

// NewUploadHandler 构造 UploadHandler。scanner 为 nil 时跳过病毒扫描。
func NewUploadHandler(storageClient ObjectStorage, scanner Scanner, logger *slog.Logger, maxBytes int64, publicBaseURL string) *UploadHandler {
	return &UploadHandler{
		storage:       storageClient,
		scanner:       scanner,
		logger:        logger,
		maxBytes:      maxBytes,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// UploadResume 接收 multipart 字段 resume，扫描后存入对象存储。
func (h *UploadHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContextOr(c, h.logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	file, err := c.FormFile("resume")
	if err != nil {
		metrics.ObserveUpload("rejected")
		BadRequest(c, "No file uploaded")
		return
	}
	if file.Size > h.maxBytes {
		metrics.ObserveUpload("rejected")
		BadRequest(c, fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := allowedResumeTypes[ext]
	if !ok {
		metrics.ObserveUpload("rejected")
		BadRequest(c, "Only PDF, DOC and DOCX files are allowed")
		return
	}

	if h.scanner != nil {
		if err := h.scan(file); err != nil {
			if errors.Is(err, ErrInfected) {
				metrics.ObserveUpload("infected")
				logger.Warn("infected upload rejected", slog.String("filename", file.Filename))
				BadRequest(c, ErrInfected.Error())
				return
			}
			metrics.ObserveUpload("failed")
			logger.Error("scan file failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		metrics.ObserveUpload("failed")
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	objectKey := resumeObjectKey(userID, uuid.NewString(), ext)
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, reader, file.Size, contentType); err != nil {
		metrics.ObserveUpload("failed")
		logger.Error("upload file failed", slog.String("object_key", objectKey), slog.Any("error", err))
		Internal(c, "File upload failed")
		return
	}

	metrics.ObserveUpload("stored")
	logger.Info("resume uploaded", slog.String("object_key", objectKey), slog.Int64("size", file.Size))
	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"fileUrl":  h.publicBaseURL + "/api/files/" + objectKey,
		"fileName": file.Filename,
	})
}

// GetFile 校验对象存在后重定向到限时下载链接。
func (h *UploadHandler) GetFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !isValidResumeObjectKey(key) {
		NotFound(c, "file not found")
		return
	}
	logger := middleware.LoggerFromContextOr(c, h.logger)
	ctx := c.Request.Context()

	if err := h.storage.StatObject(ctx, key); err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "file not found")
			return
		}
		logger.Error("stat object failed", slog.String("object_key", key), slog.Any("error", err))
		Internal(c, "failed to load file")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, key, "resume"+filepath.Ext(key), presignedURLTTL)
	if err != nil {
		logger.Error("generate presigned url failed", slog.String("object_key", key), slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}
	c.Redirect(http.StatusFound, signedURL)
}

func (h *UploadHandler) scan(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer reader.Close()
	return h.scanner.Scan(reader)
}
