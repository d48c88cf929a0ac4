package locales

// MessagesViVN holds the Vietnamese translations.
var MessagesViVN = map[string]string{
	// Common messages
	"success":        "Thao tác thành công",
	"error":          "Thao tác thất bại",
	"unauthorized":   "Chưa xác thực",
	"forbidden":      "Không có quyền truy cập",
	"not_found":      "Không tìm thấy",
	"bad_request":    "Yêu cầu không hợp lệ",
	"internal_error": "Lỗi hệ thống",
	"invalid_param":  "Tham số không hợp lệ",

	// Authentication related
	"auth.invalid_key":  "Khóa xác thực không hợp lệ",
	"auth.key_required": "Cần khóa xác thực",

	// Budget rule related
	"rule.created":          "Tạo quy tắc ngân sách thành công",
	"rule.bulk_created":     "Đã tạo {{.created}} quy tắc ngân sách, {{.failed}} thất bại",
	"rule.updated":          "Cập nhật quy tắc ngân sách thành công",
	"rule.deactivated":      "Đã tắt quy tắc ngân sách",
	"rule.not_found":        "Không tìm thấy quy tắc ngân sách",
	"rule.invalid_window":   "Giờ bắt đầu phải trước giờ kết thúc",
	"rule.invalid_campaign": "Chiến dịch không tồn tại hoặc không hoạt động",

	// Clone job related
	"job.scheduled":     "Đã lên lịch sao chép khung giờ",
	"job.started":       "Đã bắt đầu sao chép khung giờ",
	"job.cancelled":     "Đã hủy sao chép khung giờ",
	"job.requeued":      "Đã đưa sao chép khung giờ vào hàng đợi lại",
	"job.rescheduled":   "Đã đổi lịch sao chép khung giờ",
	"job.not_found":     "Không tìm thấy tác vụ sao chép",
	"job.invalid_state": "Tác vụ sao chép không ở trạng thái cho phép thao tác này",

	// Sync related
	"sync.started":     "Đã bắt đầu đồng bộ dữ liệu",
	"sync.fresh":       "Dữ liệu còn mới, không cần đồng bộ",
	"sync.in_progress": "Đang đồng bộ dữ liệu",

	// Logs related
	"logs.exported": "Xuất nhật ký thực thi thành công",

	// Scheduler related
	"scheduler.pass_completed": "Hoàn tất phiên cập nhật ngân sách: {{.succeeded}} thành công, {{.failed}} thất bại, {{.skipped}} bỏ qua",
}
