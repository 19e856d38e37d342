package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"k8s.io/apimachinery/pkg/util/rand"

	"noticeboard/config"
	"noticeboard/pkg/logger"
)

const noticeUploadPrefix = "public"

// Storage 公告附件存储。配置了R2时上传到对象存储，否则落到本地uploads目录。
type Storage struct {
	cfg       config.R2Config
	uploadDir string
	logger    *logger.Logger

	// R2客户端首次使用时构建一次，之后复用
	once    sync.Once
	client  *s3.Client
	initErr error
}

// NewStorage 创建附件存储实例
func NewStorage(cfg config.R2Config, uploadDir string, logger *logger.Logger) *Storage {
	return &Storage{cfg: cfg, uploadDir: uploadDir, logger: logger}
}

// s3Client 延迟初始化R2客户端
func (s *Storage) s3Client(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("auto"),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
			),
		)
		if err != nil {
			s.initErr = fmt.Errorf("初始化R2客户端失败: %w", err)
			return
		}
		s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		})
	})
	return s.client, s.initErr
}

// SaveUpload 保存上传的附件，返回可公开访问的URL和原始文件名
func (s *Storage) SaveUpload(ctx context.Context, fh *multipart.FileHeader) (string, string, error) {
	originalName := strings.TrimSpace(fh.Filename)
	if originalName == "" {
		originalName = "upload"
	}

	suffix := strings.ToLower(filepath.Ext(originalName))
	if len(suffix) > 16 {
		suffix = ""
	}
	generatedName := rand.String(32) + suffix

	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer src.Close()

	if s.cfg.Enabled() {
		fileURL, err := s.putObject(ctx, noticeUploadPrefix+"/"+generatedName, originalName, fh, src)
		if err != nil {
			return "", "", err
		}
		return fileURL, originalName, nil
	}

	fileURL, err := s.saveLocal("notices", generatedName, src)
	if err != nil {
		return "", "", err
	}
	return fileURL, originalName, nil
}

// putObject 上传到R2并返回公开URL
func (s *Storage) putObject(ctx context.Context, key, originalName string, fh *multipart.FileHeader, src io.Reader) (string, error) {
	payload, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("上传文件为空")
	}

	contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(originalName))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传附件到R2失败: %w", err)
	}

	return s.cfg.PublicURL + "/" + escapeKey(key), nil
}

// saveLocal 保存到本地uploads目录
func (s *Storage) saveLocal(subdir, name string, src io.Reader) (string, error) {
	targetDir := filepath.Join(s.uploadDir, subdir)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	out, err := os.Create(filepath.Join(targetDir, name))
	if err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}

	return "/uploads/" + subdir + "/" + name, nil
}

// Delete 删除附件。只处理本服务托管的URL，删除失败由调用方决定是否忽略。
func (s *Storage) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}

	if key := s.keyFromURL(fileURL); key != "" {
		client, err := s.s3Client(ctx)
		if err != nil {
			return err
		}
		_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("删除R2附件失败: %w", err)
		}
		return nil
	}

	return s.deleteLocal(fileURL)
}

// IsManagedURL 判断URL指向的文件是否由本服务托管，可以安全删除
func (s *Storage) IsManagedURL(fileURL string) bool {
	if fileURL == "" {
		return false
	}
	return s.keyFromURL(fileURL) != "" || strings.HasPrefix(fileURL, "/uploads/")
}

// keyFromURL 从公开URL反推R2对象键，非托管URL返回空串
func (s *Storage) keyFromURL(fileURL string) string {
	if s.cfg.PublicURL == "" {
		return ""
	}
	prefix := s.cfg.PublicURL + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return ""
	}
	key, err := url.PathUnescape(strings.TrimPrefix(fileURL, prefix))
	if err != nil {
		return ""
	}
	return key
}

// deleteLocal 删除本地uploads目录下的文件，防止越出根目录
func (s *Storage) deleteLocal(fileURL string) error {
	if !strings.HasPrefix(fileURL, "/uploads/") {
		return nil
	}

	relative := strings.TrimPrefix(fileURL, "/uploads/")
	if unescaped, err := url.PathUnescape(relative); err == nil {
		relative = unescaped
	}

	candidate := filepath.Join(s.uploadDir, filepath.FromSlash(relative))
	rel, err := filepath.Rel(s.uploadDir, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}

	if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除本地附件失败: %w", err)
	}
	return nil
}

// escapeKey 对对象键逐段转义，保留路径分隔符
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
