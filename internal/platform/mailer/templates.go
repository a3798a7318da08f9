package mailer

import "fmt"

// Email bodies mirror the Vietnamese templates the organizers send today.

// OTPEmail renders the verification-code email.
func OTPEmail(code string, ttlMinutes int) (subject, text, html string) {
	subject = "Mã OTP xác thực"
	text = fmt.Sprintf("Mã xác thực của bạn là %s. Mã sẽ hết hạn sau %d phút. Vui lòng không chia sẻ mã này với bất kỳ ai.", code, ttlMinutes)
	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 8px; padding: 24px;">
  <h2 style="color: #2c3e50;">Xác thực email</h2>
  <p>Xin chào,</p>
  <p>Vui lòng sử dụng mã xác thực (OTP) dưới đây để tiếp tục:</p>
  <div style="font-size: 32px; font-weight: bold; color: #1a73e8; letter-spacing: 6px; text-align: center; margin: 24px 0;">%s</div>
  <p>Mã OTP này sẽ hết hạn sau <strong>%d phút</strong>. Vui lòng không chia sẻ mã này với bất kỳ ai.</p>
  <p>Nếu bạn không thực hiện yêu cầu này, vui lòng bỏ qua email này.</p>
  <p style="margin-top: 32px;">Trân trọng,<br/>Đội ngũ hỗ trợ</p>
</div>`, code, ttlMinutes)
	return subject, text, html
}

// TicketEmail renders the QR check-in ticket email. qrDataURL is a
// base64 PNG data URL embedded inline.
func TicketEmail(name, eventTitle, qrDataURL string) (subject, text, html string) {
	subject = "Mã QR Tham Dự Sự Kiện"
	text = fmt.Sprintf("Xin chào %s, bạn đã đăng ký tham dự \"%s\" thành công. Vui lòng dùng mã QR đính kèm để điểm danh khi đến sự kiện.", name, eventTitle)
	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 8px; padding: 24px;">
  <h2 style="color: #2c3e50;">Mã QR Tham Dự Sự Kiện</h2>
  <p>Xin chào <strong>%s</strong>,</p>
  <p>Bạn đã đăng ký tham dự <strong>%s</strong> thành công. Vui lòng sử dụng mã QR bên dưới để điểm danh khi đến sự kiện.</p>
  <div style="text-align: center; margin: 24px 0;">
    <img src="%s" alt="QR Code" style="width: 200px; height: 200px;" />
  </div>
  <p>Hãy giữ email này để sử dụng khi check-in.</p>
  <p style="margin-top: 32px;">Trân trọng,<br/>Ban tổ chức</p>
</div>`, name, eventTitle, qrDataURL)
	return subject, text, html
}
